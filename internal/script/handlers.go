package script

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/tidwall/sjson"

	"github.com/dshills/inkwell/internal/directory"
	"github.com/dshills/inkwell/internal/mediapicker"
)

var _ directory.Source = (*Engine)(nil)

// Search calls suggest(query, limit). Each entry is either a name or a
// table with the directory.Contact fields in snake_case. At most limit
// entries are returned when limit is positive.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]directory.Contact, error) {
	ret, err := e.call(ctx, SuggestFunc, lua.LString(query), lua.LNumber(limit))
	if err != nil {
		return nil, err
	}
	if ret == lua.LNil {
		return nil, nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s returned %s: %w", SuggestFunc, ret.Type(), ErrBadResult)
	}

	var out []directory.Contact
	for i := 1; i <= tbl.Len(); i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		switch v := tbl.RawGetInt(i).(type) {
		case lua.LString:
			out = append(out, directory.Contact{Name: string(v)})
		case *lua.LTable:
			out = append(out, contactFromTable(v))
		default:
			return nil, fmt.Errorf("%s entry %d is %s: %w", SuggestFunc, i, v.Type(), ErrBadResult)
		}
	}
	return out, nil
}

func contactFromTable(t *lua.LTable) directory.Contact {
	c := directory.Contact{
		UserID:        field(t, "user_id"),
		Name:          field(t, "name"),
		FirstName:     field(t, "first_name"),
		LastName:      field(t, "last_name"),
		SlackUsername: field(t, "slack_username"),
		Email:         field(t, "email"),
		AvatarURL:     field(t, "avatar_url"),
	}
	if handles, ok := t.RawGetString("slack_usernames").(*lua.LTable); ok {
		for i := 1; i <= handles.Len(); i++ {
			if s, ok := handles.RawGetInt(i).(lua.LString); ok {
				c.SlackUsernames = append(c.SlackUsernames, string(s))
			}
		}
	}
	if c.Name == "" {
		c.Name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return c
}

// PickerDelegate answers media button clicks with on_picker_click. The
// handler returns nil to cancel, or a table:
//
//	{media = "photo", url = ..., thumbnail = ..., width = ..., height = ...}
//	{media = "video", url = ..., video_type = ..., id = ..., thumbnail = ...}
//	{media = "chart", url = ..., id = ..., thumbnail = ...}
//	{media = "attachment", url = ..., attachment = {fileName = ..., ...}}
//
// media defaults to the clicked kind. The divider needs no answer and is
// only reported.
func (e *Engine) PickerDelegate() mediapicker.Delegate {
	return mediapicker.Delegate{
		OnPickerClick: e.pick,
	}
}

func (e *Engine) pick(s *mediapicker.Session, kind mediapicker.Kind) {
	ret, err := e.call(context.Background(), PickerClickFunc, lua.LString(kind))
	if kind == mediapicker.KindDivider {
		if err != nil {
			e.log.Debug("divider handler failed", "error", err)
		}
		return
	}
	if err != nil {
		e.log.Warn("picker handler failed", "kind", string(kind), "error", err)
		s.Cancel()
		return
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		if ret != lua.LNil {
			e.log.Warn("picker handler result ignored", "kind", string(kind), "type", ret.Type().String())
		}
		s.Cancel()
		return
	}

	media := mediapicker.Kind(field(t, "media"))
	if media == "" {
		media = kind
	}
	url, thumb := field(t, "url"), field(t, "thumbnail")
	switch media {
	case mediapicker.KindPhoto:
		s.AddPhoto(url, thumb, intField(t, "width"), intField(t, "height"))
	case mediapicker.KindVideo:
		s.AddVideo(url, field(t, "video_type"), field(t, "id"), thumb)
	case mediapicker.KindChart:
		s.AddChart(url, field(t, "id"), thumb)
	case mediapicker.KindAttachment:
		meta, _ := t.RawGetString("attachment").(*lua.LTable)
		a, err := mediapicker.AttachmentFromJSON([]byte(tableJSON(meta)))
		if err != nil {
			e.log.Warn("attachment metadata rejected", "error", err)
			s.Cancel()
			return
		}
		s.AddAttachment(url, a)
	default:
		e.log.Warn("picker handler returned no insertable media", "kind", string(kind), "media", string(media))
		s.Cancel()
	}
}

func field(t *lua.LTable, key string) string {
	switch v := t.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	}
	return ""
}

func intField(t *lua.LTable, key string) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// tableJSON encodes the string-keyed scalar fields of t as a JSON object.
// A nil table encodes as {}.
func tableJSON(t *lua.LTable) string {
	out := "{}"
	if t == nil {
		return out
	}
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		path := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(string(key))
		var val any
		switch x := v.(type) {
		case lua.LString:
			val = string(x)
		case lua.LNumber:
			val = float64(x)
		case lua.LBool:
			val = bool(x)
		default:
			return
		}
		if next, err := sjson.Set(out, path, val); err == nil {
			out = next
		}
	})
	return out
}
