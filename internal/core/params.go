package core

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Text accepts a JSON string, number or boolean and keeps its text form.
// Clients send ids both quoted and bare.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*t = Text(b)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	}
}

// Flag is a loosely typed boolean: false, 0, "", null and a missing
// field are false, everything else is true.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch v := strings.TrimSpace(string(b)); v {
	case "false", "0", `""`, "null":
		*f = false
	default:
		*f = true
	}
	return nil
}

// Number accepts a JSON number or a numeric string. Anything else is 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	if err != nil {
		f = 0
	}
	*n = Number(f)
	return nil
}

// ConnectParams are read from the connection's setup query string.
type ConnectParams struct {
	RoomID string
}

// JoinParams is the signed profile presented by join.
type JoinParams struct {
	ID        Text `json:"id"`
	Name      Text `json:"name"`
	Role      Text `json:"role"`
	RoleID    Text `json:"role_id"`
	Muted     Text `json:"muted"`
	Gender    Text `json:"gender"`
	ImagePath Text `json:"_userImagePath"`
	Hash      Text `json:"hash"`
}

// Profile returns the profile fields without the signature.
func (p JoinParams) Profile() Profile {
	return Profile{
		ID:        string(p.ID),
		Name:      string(p.Name),
		Role:      string(p.Role),
		RoleID:    string(p.RoleID),
		Gender:    string(p.Gender),
		ImagePath: string(p.ImagePath),
	}
}

// MutedFlag interprets the signed muted field.
func (p JoinParams) MutedFlag() bool {
	return p.Muted == "true" || p.Muted == "1"
}

// JoinDigest computes the salted profile signature. Field order and the
// trailing salt are fixed by the signing site.
func JoinDigest(p JoinParams, salt string) string {
	var b strings.Builder
	b.WriteString("gender")
	b.WriteString(string(p.Gender))
	b.WriteString("muted")
	b.WriteString(string(p.Muted))
	b.WriteString("id")
	b.WriteString(string(p.ID))
	b.WriteString("name")
	b.WriteString(string(p.Name))
	b.WriteString("role")
	b.WriteString(string(p.Role))
	b.WriteString("role_id")
	b.WriteString(string(p.RoleID))
	b.WriteString("userImagePath")
	b.WriteString(string(p.ImagePath))
	b.WriteString(salt)
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Sign sets Hash to the digest of the other fields.
func (p *JoinParams) Sign(salt string) {
	p.Hash = Text(JoinDigest(*p, salt))
}

type sendMessageParams struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	ReceiverID Text   `json:"receiverId"`
	TxtColor   string `json:"txtColor"`
}

type viewerParams struct {
	ViewerID Text `json:"viewerId"`
}

type tipParams struct {
	Token         Text `json:"token"`
	ViewerID      Text `json:"viewer_id"`
	BroadcastID   Text `json:"broadcast_id"`
	BroadcasterID Text `json:"broadcaster_id"`
	SortOrder1    Text `json:"sort_order1"`
	SortOrder2    Text `json:"sort_order2"`
	Hash1         Text `json:"hash1"`
	Hash2         Text `json:"hash2"`
}

type tipGoalParams struct {
	TipGoal json.RawMessage `json:"tipGoal"`
}

type goPrivateParams struct {
	UserIDs     []Text `json:"userIds"`
	PrivateShow Flag   `json:"privateShow"`
	Tariff      Number `json:"tariff"`
}

type allowGroupShowParams struct {
	AllowGroupShow Flag `json:"allowGroupShow"`
}

type titleParams struct {
	Title string `json:"title"`
}

type wowzaParams struct {
	ID Text `json:"id"`
}

type propertyParams struct {
	Property string          `json:"property"`
	Value    json.RawMessage `json:"value"`
}

// decodeParams treats absent params as an empty object.
func decodeParams(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, v)
}
