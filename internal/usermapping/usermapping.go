package usermapping

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mapper resolves host logins to chat user ids and back. The zero value maps nobody.
type Mapper struct {
	byLogin map[string]string
	byID    map[string]string
}

// New builds a Mapper from a login -> chat user id table. Logins match case-insensitively.
func New(table map[string]string) *Mapper {
	m := &Mapper{
		byLogin: make(map[string]string, len(table)),
		byID:    make(map[string]string, len(table)),
	}
	for login, id := range table {
		login = strings.TrimSpace(login)
		id = strings.TrimSpace(id)
		if login == "" || id == "" {
			continue
		}
		m.byLogin[strings.ToLower(login)] = id
		m.byID[id] = login
	}
	return m
}

// ParseJSON builds a Mapper from a JSON object such as {"octocat": "123456789"}.
func ParseJSON(raw string) (*Mapper, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return New(nil), nil
	}
	var table map[string]string
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("invalid user mapping JSON: %w", err)
	}
	return New(table), nil
}

// Merge returns a Mapper containing both tables; entries in other win.
func (m *Mapper) Merge(other *Mapper) *Mapper {
	table := make(map[string]string)
	for _, src := range []*Mapper{m, other} {
		if src == nil {
			continue
		}
		for id, login := range src.byID {
			table[login] = id
		}
	}
	return New(table)
}

// ChatID returns the chat user id for login.
func (m *Mapper) ChatID(login string) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.byLogin[strings.ToLower(login)]
	return id, ok
}

// Login returns the host login for a chat user id.
func (m *Mapper) Login(chatID string) (string, bool) {
	if m == nil {
		return "", false
	}
	login, ok := m.byID[chatID]
	return login, ok
}

// Mention renders login as a chat mention, or the plain login when unmapped.
func (m *Mapper) Mention(login string) string {
	if id, ok := m.ChatID(login); ok {
		return "<@" + id + ">"
	}
	return login
}

// Unmention is the inverse of Mention.
func (m *Mapper) Unmention(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "<@") && strings.HasSuffix(token, ">") {
		id := strings.TrimPrefix(strings.TrimSuffix(token[2:], ">"), "!")
		if login, ok := m.Login(id); ok {
			return login
		}
		return token
	}
	return token
}

// Len reports how many logins are mapped.
func (m *Mapper) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byLogin)
}
