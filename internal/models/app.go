package models

import "time"

// AppGenStatus is the generation lifecycle of an app's code artifact.
type AppGenStatus string

const (
	AppGenNotGenerated AppGenStatus = "not_generated"
	AppGenGenerating   AppGenStatus = "generating"
	AppGenReady        AppGenStatus = "ready"
	AppGenFailed       AppGenStatus = "failed"
)

// AppGenStatusMeta is the display entry for a generation status.
type AppGenStatusMeta struct {
	Value AppGenStatus `json:"value"`
	Label string       `json:"label"`
	Color string       `json:"color"`
}

// AppGenStatusOptions is the badge table. The first entry is the fallback
// for unknown input, so its position must not change.
var AppGenStatusOptions = []AppGenStatusMeta{
	{Value: AppGenNotGenerated, Label: "未生成", Color: "default"},
	{Value: AppGenGenerating, Label: "生成中", Color: "blue"},
	{Value: AppGenReady, Label: "已完成", Color: "green"},
	{Value: AppGenFailed, Label: "失败", Color: "red"},
}

// GetAppGenStatusMeta returns the display entry for status, falling back to
// the not-generated entry for empty or unknown values.
func GetAppGenStatusMeta(status string) AppGenStatusMeta {
	for _, item := range AppGenStatusOptions {
		if string(item.Value) == status {
			return item
		}
	}
	return AppGenStatusOptions[0]
}

// FormatAppGenStatus returns the display label for status.
func FormatAppGenStatus(status string) string {
	return GetAppGenStatusMeta(status).Label
}

// AppGenStatusFromValue parses a stored or submitted status. Empty and
// unknown values are rejected.
func AppGenStatusFromValue(v string) (AppGenStatus, bool) {
	if v == "" {
		return "", false
	}
	for _, item := range AppGenStatusOptions {
		if string(item.Value) == v {
			return item.Value, true
		}
	}
	return "", false
}

// App is a user-owned generated application.
type App struct {
	ID         int64        `json:"id"`
	AppName    string       `json:"appName"`
	Cover      string       `json:"cover"`
	InitPrompt string       `json:"initPrompt"`
	GenStatus  AppGenStatus `json:"genStatus"`
	UserID     int64        `json:"userId"`
	CreateTime time.Time    `json:"createTime"`
	UpdateTime time.Time    `json:"updateTime"`
}

// AppVO is an app joined with its owner's public view.
type AppVO struct {
	App
	User *UserVO `json:"user,omitempty"`
}
