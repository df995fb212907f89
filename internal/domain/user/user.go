package user

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// User is the synthetic identity returned by the user directory.
// Only Name, Login.UUID and Picture are read by the dashboard; everything
// else is carried through untouched.
type User struct {
	Gender     string      `json:"gender,omitempty"`
	Name       *Name       `json:"name,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	Email      string      `json:"email,omitempty"`
	Login      Login       `json:"login"`
	Dob        *DatedAge   `json:"dob,omitempty"`
	Registered *DatedAge   `json:"registered,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	Cell       string      `json:"cell,omitempty"`
	ID         *Identifier `json:"id,omitempty"`
	Picture    *Picture    `json:"picture,omitempty"`
	Nat        string      `json:"nat,omitempty"`
}

type Name struct {
	Title string `json:"title,omitempty"`
	First string `json:"first"`
	Last  string `json:"last"`
}

type Location struct {
	Street struct {
		Number int    `json:"number"`
		Name   string `json:"name"`
	} `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	// randomuser returns numbers for some nationalities and strings for others.
	Postcode    json.RawMessage `json:"postcode,omitempty"`
	Coordinates struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"coordinates"`
	Timezone struct {
		Offset      string `json:"offset"`
		Description string `json:"description"`
	} `json:"timezone"`
}

type Login struct {
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Salt     string `json:"salt,omitempty"`
	MD5      string `json:"md5,omitempty"`
	SHA1     string `json:"sha1,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

type DatedAge struct {
	Date string `json:"date"`
	Age  int    `json:"age"`
}

type Identifier struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

type Picture struct {
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Thumbnail string `json:"thumbnail"`
}

var ErrCorruptMirror = errors.New("stored user is not valid json")

// Token is the opaque session token for this identity.
func (u User) Token() string {
	return u.Login.UUID
}

func (u *User) Thumbnail() string {
	if u == nil || u.Picture == nil {
		return ""
	}
	return u.Picture.Thumbnail
}

// DisplayName renders "<first> <last>". Missing parts become empty strings,
// so a nil user (or one without a name) yields a single space.
func DisplayName(u *User) string {
	var first, last string
	if u != nil && u.Name != nil {
		first, last = u.Name.First, u.Name.Last
	}
	return first + " " + last
}

// Initial is the avatar fallback: the first rune of the trimmed display name.
func Initial(displayName string) string {
	s := strings.TrimSpace(displayName)
	if s == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}

func EncodeMirror(u User) (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeMirror(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, errors.Join(ErrCorruptMirror, err)
	}
	return &u, nil
}
