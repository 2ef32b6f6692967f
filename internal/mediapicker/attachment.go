package mediapicker

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Attachment is the metadata shown on an attachment card.
type Attachment struct {
	FileName  string
	FileType  string
	FileSize  int64
	Author    string
	CreatedAt string
	Icon      string
	Title     string
	Subtitle  string
}

// AttachmentFromJSON reads attachment metadata as hosts send it:
//
//	{"fileName": "...", "fileType": "...", "fileSize": 123, "author": "...",
//	 "createdat": "...", "icon": "fa-file-pdf-o", "title": "...", "subtitle": "..."}
//
// Missing fields are left empty. The title falls back to the file name.
func AttachmentFromJSON(data []byte) (Attachment, error) {
	if !gjson.ValidBytes(data) {
		return Attachment{}, fmt.Errorf("parse attachment: %w", ErrInvalidAttachment)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Attachment{}, fmt.Errorf("parse attachment: not an object: %w", ErrInvalidAttachment)
	}

	a := Attachment{
		FileName:  root.Get("fileName").String(),
		FileType:  root.Get("fileType").String(),
		FileSize:  root.Get("fileSize").Int(),
		Author:    root.Get("author").String(),
		CreatedAt: root.Get("createdat").String(),
		Icon:      root.Get("icon").String(),
		Title:     root.Get("title").String(),
		Subtitle:  root.Get("subtitle").String(),
	}
	if a.Title == "" {
		a.Title = a.FileName
	}
	return a, nil
}
