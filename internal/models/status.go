package models

// AppVersionStatus is the state of one saved version of an app.
type AppVersionStatus string

const (
	AppVersionGenerating AppVersionStatus = "generating"
	AppVersionReady      AppVersionStatus = "ready"
	AppVersionFailed     AppVersionStatus = "failed"
)

var appVersionStatusText = map[AppVersionStatus]string{
	AppVersionGenerating: "生成中",
	AppVersionReady:      "可用",
	AppVersionFailed:     "失败",
}

// Text returns the display label, or "" for unknown values.
func (s AppVersionStatus) Text() string {
	return appVersionStatusText[s]
}

// IsValid reports whether s is a known version status.
func (s AppVersionStatus) IsValid() bool {
	_, ok := appVersionStatusText[s]
	return ok
}

// BuildProgressStatus is the state of a build progress event.
type BuildProgressStatus string

const (
	BuildWaiting BuildProgressStatus = "waiting"
	BuildRunning BuildProgressStatus = "running"
	BuildSuccess BuildProgressStatus = "success"
	BuildFailed  BuildProgressStatus = "failed"
)

// IsFinished reports whether the build reached a terminal state.
func (s BuildProgressStatus) IsFinished() bool {
	return s == BuildSuccess || s == BuildFailed
}
