package verifyreset

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Column names used by queries, patches and identity allow-lists.
const (
	FieldID               = "id"
	FieldEmail            = "email"
	FieldUsername         = "username"
	FieldPhone            = "phone_number"
	FieldPasswordHash     = "password_hash"
	FieldIsVerified       = "is_verified"
	FieldVerifyToken      = "verify_token"
	FieldVerifyShortToken = "verify_short_token"
	FieldVerifyExpires    = "verify_expires"
	FieldVerifyChanges    = "verify_changes"
	FieldResetToken       = "reset_token"
	FieldResetShortToken  = "reset_short_token"
	FieldResetExpires     = "reset_expires"
	FieldUpdatedAt        = "updated_at"
)

// fieldAliases maps the camelCase names clients historically sent to columns.
var fieldAliases = map[string]string{
	"_id":              FieldID,
	"phone":            FieldPhone,
	"password":         FieldPasswordHash,
	"isVerified":       FieldIsVerified,
	"verifyToken":      FieldVerifyToken,
	"verifyShortToken": FieldVerifyShortToken,
	"verifyExpires":    FieldVerifyExpires,
	"verifyChanges":    FieldVerifyChanges,
	"resetToken":       FieldResetToken,
	"resetShortToken":  FieldResetShortToken,
	"resetExpires":     FieldResetExpires,
}

// NormalizeField resolves a field name or one of its aliases to a column name.
func NormalizeField(name string) string {
	name = strings.TrimSpace(name)
	if col, ok := fieldAliases[name]; ok {
		return col
	}
	return name
}

// User is the user record. The token lifecycle only mutates the verify,
// reset, password and email columns.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Username         string         `bun:"username" json:"username,omitempty"`
	Phone            string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash     string         `bun:"password_hash" json:"password_hash,omitempty"`
	IsVerified       bool           `bun:"is_verified,notnull" json:"is_verified"`
	VerifyToken      *string        `bun:"verify_token" json:"verify_token,omitempty"`
	VerifyShortToken *string        `bun:"verify_short_token" json:"verify_short_token,omitempty"`
	VerifyExpires    *time.Time     `bun:"verify_expires" json:"verify_expires,omitempty"`
	VerifyChanges    map[string]any `bun:"verify_changes,type:jsonb,nullzero" json:"verify_changes,omitempty"`
	ResetToken       *string        `bun:"reset_token" json:"reset_token,omitempty"`
	ResetShortToken  *string        `bun:"reset_short_token" json:"reset_short_token,omitempty"`
	ResetExpires     *time.Time     `bun:"reset_expires" json:"reset_expires,omitempty"`
	CreatedAt        *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.VerifyToken = cloneString(u.VerifyToken)
	c.VerifyShortToken = cloneString(u.VerifyShortToken)
	c.VerifyExpires = cloneTime(u.VerifyExpires)
	c.ResetToken = cloneString(u.ResetToken)
	c.ResetShortToken = cloneString(u.ResetShortToken)
	c.ResetExpires = cloneTime(u.ResetExpires)
	c.CreatedAt = cloneTime(u.CreatedAt)
	c.UpdatedAt = cloneTime(u.UpdatedAt)
	if u.VerifyChanges != nil {
		c.VerifyChanges = maps.Clone(u.VerifyChanges)
	}
	return &c
}

// FieldValue returns the value stored under column name. Null tokens are
// reported as nil so they never match a string query.
func (u *User) FieldValue(name string) (any, bool) {
	switch NormalizeField(name) {
	case FieldID:
		return u.ID.String(), true
	case FieldEmail:
		return u.Email, true
	case FieldUsername:
		return u.Username, true
	case FieldPhone:
		return u.Phone, true
	case FieldIsVerified:
		return u.IsVerified, true
	case FieldVerifyToken:
		return derefString(u.VerifyToken), true
	case FieldVerifyShortToken:
		return derefString(u.VerifyShortToken), true
	case FieldResetToken:
		return derefString(u.ResetToken), true
	case FieldResetShortToken:
		return derefString(u.ResetShortToken), true
	default:
		return nil, false
	}
}

// Apply writes the patch values into the record.
func (u *User) Apply(p Patch) error {
	for key, val := range p {
		if err := u.set(key, val); err != nil {
			return err
		}
	}
	return nil
}

func (u *User) set(key string, val any) error {
	var ok bool
	switch key {
	case FieldEmail:
		u.Email, ok = val.(string)
	case FieldUsername:
		u.Username, ok = val.(string)
	case FieldPhone:
		u.Phone, ok = val.(string)
	case FieldPasswordHash:
		u.PasswordHash, ok = val.(string)
	case FieldIsVerified:
		u.IsVerified, ok = val.(bool)
	case FieldVerifyToken:
		u.VerifyToken, ok = val.(*string)
	case FieldVerifyShortToken:
		u.VerifyShortToken, ok = val.(*string)
	case FieldVerifyExpires:
		u.VerifyExpires, ok = val.(*time.Time)
	case FieldVerifyChanges:
		u.VerifyChanges, ok = val.(map[string]any)
	case FieldResetToken:
		u.ResetToken, ok = val.(*string)
	case FieldResetShortToken:
		u.ResetShortToken, ok = val.(*string)
	case FieldResetExpires:
		u.ResetExpires, ok = val.(*time.Time)
	case FieldUpdatedAt:
		u.UpdatedAt, ok = val.(*time.Time)
	default:
		return fmt.Errorf("unknown patch field %q", key)
	}
	if !ok {
		return fmt.Errorf("invalid value type %T for patch field %q", val, key)
	}
	return nil
}

// Patch is a partial update keyed by column name. A nil pointer value
// clears the column.
type Patch map[string]any

// Columns returns the patched column names.
func (p Patch) Columns() []string {
	cols := make([]string, 0, len(p))
	for k := range p {
		cols = append(cols, k)
	}
	return cols
}

// Query is an equality lookup keyed by column name.
type Query map[string]any

// FindResult is what a repository returns from Find, either paginated or
// a flat list.
type FindResult interface {
	Users() []*User
}

// Page is a paginated find result.
type Page struct {
	Data  []*User `json:"data"`
	Total int     `json:"total"`
	Limit int     `json:"limit"`
	Skip  int     `json:"skip"`
}

// Users implements FindResult.
func (p *Page) Users() []*User {
	if p == nil {
		return nil
	}
	return p.Data
}

// UserList is a non paginated find result.
type UserList []*User

// Users implements FindResult.
func (l UserList) Users() []*User {
	return l
}

func usersFrom(res FindResult) []*User {
	if res == nil {
		return nil
	}
	return res.Users()
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
