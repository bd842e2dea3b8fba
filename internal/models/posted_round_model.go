package models

// RootFolder keys the posted round when no folder is configured.
const RootFolder = "root"

type PostedRound struct {
	UserID   int64    `json:"user_id"`
	FolderID string   `json:"folder_id"`
	FileIDs  []string `json:"posted_ids"`
}
