package domain

import (
	"encoding/json"
)

// User is the profile record returned by the API. Keys the client does not
// model are kept in Extra and written back unchanged.
type User struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
	Extra     map[string]json.RawMessage
}

// UserPatch is a partial user. Nil fields are left untouched by Merge.
type UserPatch struct {
	ID        *string
	Name      *string
	Email     *string
	AvatarURL *string
	Extra     map[string]json.RawMessage
}

const (
	userKeyID        = "id"
	userKeyName      = "name"
	userKeyEmail     = "email"
	userKeyAvatarURL = "avatar_url"
)

func isUserKey(k string) bool {
	switch k {
	case userKeyID, userKeyName, userKeyEmail, userKeyAvatarURL:
		return true
	}
	return false
}

// Merge returns a copy of u with every field present in p applied on top.
func (u User) Merge(p UserPatch) User {
	out := u
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.AvatarURL != nil {
		out.AvatarURL = *p.AvatarURL
	}

	if len(u.Extra) > 0 || len(p.Extra) > 0 {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra)+len(p.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = v
		}
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		if isUserKey(k) {
			continue
		}
		m[k] = v
	}
	m[userKeyID] = u.ID
	m[userKeyName] = u.Name
	m[userKeyEmail] = u.Email
	m[userKeyAvatarURL] = u.AvatarURL
	return json.Marshal(m)
}

func (u *User) UnmarshalJSON(b []byte) error {
	var p UserPatch
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = User{}.Merge(p)
	return nil
}

func (p UserPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		if isUserKey(k) {
			continue
		}
		m[k] = v
	}
	if p.ID != nil {
		m[userKeyID] = *p.ID
	}
	if p.Name != nil {
		m[userKeyName] = *p.Name
	}
	if p.Email != nil {
		m[userKeyEmail] = *p.Email
	}
	if p.AvatarURL != nil {
		m[userKeyAvatarURL] = *p.AvatarURL
	}
	return json.Marshal(m)
}

func (p *UserPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := UserPatch{}
	for k, v := range raw {
		var dst **string
		switch k {
		case userKeyID:
			dst = &out.ID
		case userKeyName:
			dst = &out.Name
		case userKeyEmail:
			dst = &out.Email
		case userKeyAvatarURL:
			dst = &out.AvatarURL
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = v
			continue
		}

		// null avatar_url is common for users who never uploaded one
		if string(v) == "null" {
			empty := ""
			*dst = &empty
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		*dst = &s
	}
	*p = out
	return nil
}
