package dto

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/stretchr/testify/assert"
)

func TestSignupForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    SignupForm
		invalid []string
	}{
		{"valid", SignupForm{Username: "alice", Password: "pw123456", Email: "a@x.com"}, nil},
		{"empty", SignupForm{}, []string{"username", "password", "email"}},
		{"short password", SignupForm{Username: "alice", Password: "pw", Email: "a@x.com"}, []string{"password"}},
		{"bad email", SignupForm{Username: "alice", Password: "pw123456", Email: "nope"}, []string{"email"}},
		{"long username", SignupForm{Username: strings.Repeat("a", 31), Password: "pw123456", Email: "a@x.com"}, []string{"username"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.form.Validate()
			assert.Len(t, errs, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, errs, field)
			}
		})
	}
}

func TestLoginForm_Validate(t *testing.T) {
	assert.Empty(t, LoginForm{Username: "alice", Password: "x"}.Validate())
	assert.Len(t, LoginForm{}.Validate(), 2)
}

func TestProfileForm_Validate(t *testing.T) {
	assert.Empty(t, ProfileForm{Username: "alice", Email: "a@x.com", Password: "pw"}.Validate())

	errs := ProfileForm{Username: "", Email: "bad"}.Validate()
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestParseSignupForm_Trims(t *testing.T) {
	body := url.Values{"username": {"  alice "}, "password": {" pw "}, "email": {" a@x.com"}}
	req := httptest.NewRequest("POST", "/signup", strings.NewReader(body.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form := ParseSignupForm(req)
	assert.Equal(t, "alice", form.Username)
	assert.Equal(t, " pw ", form.Password, "passwords are taken verbatim")
	assert.Equal(t, "a@x.com", form.Email)
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 7, ParsePage("7"))
}

func TestNewPager(t *testing.T) {
	p := NewPager(1, petfinder.Pagination{TotalPages: 3})
	assert.Equal(t, 0, p.Prev)
	assert.Equal(t, 2, p.Next)

	p = NewPager(3, petfinder.Pagination{TotalPages: 3})
	assert.Equal(t, 2, p.Prev)
	assert.Equal(t, 0, p.Next)

	p = NewPager(5, petfinder.Pagination{})
	assert.Equal(t, 6, p.Next)
}
