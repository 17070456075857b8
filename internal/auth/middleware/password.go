package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost HashPassword uses.
const PasswordCost = 12

type User struct {
	Name     string
	PassHash string // bcrypt
	Role     string
}

// PasswordLogin checks credentials against a fixed set of users.
type PasswordLogin struct {
	users map[string]User
	cost  int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordLogin registers users. Unknown names are checked against a
// dummy hash at the highest cost among the users, so both paths take as long.
func NewPasswordLogin(users ...User) *PasswordLogin {
	p := &PasswordLogin{users: make(map[string]User, len(users)), cost: PasswordCost}
	for i, u := range users {
		p.users[u.Name] = u
		if c, err := bcrypt.Cost([]byte(u.PassHash)); err == nil && (i == 0 || c > p.cost) {
			p.cost = c
		}
	}
	return p
}

func (p *PasswordLogin) dummyHash() []byte {
	p.dummyOnce.Do(func() {
		p.dummy, _ = bcrypt.GenerateFromPassword([]byte("not a password"), p.cost)
	})
	return p.dummy
}

func (p *PasswordLogin) Authenticate(name, password string) (User, bool) {
	u, ok := p.users[name]
	if !ok || name == "" {
		_ = bcrypt.CompareHashAndPassword(p.dummyHash(), []byte(password))
		return User{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(password)) != nil {
		return User{}, false
	}
	return u, true
}

// HashPassword is used by the CLI to produce ADMIN_PASS_HASH values.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(b), err
}
