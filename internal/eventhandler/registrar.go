package eventhandler

import (
	"sync"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Key selects a handler. An empty Subrole matches any subrole.
type Key struct {
	Role    string
	Subrole string
}

// Registrar chooses the handler for an element by role and subrole.
// Registered constructors take precedence over the built-in table.
type Registrar struct {
	mu        sync.RWMutex
	overrides map[Key]Constructor
}

// NewRegistrar returns a registrar with only the built-in handlers.
func NewRegistrar() *Registrar {
	return &Registrar{overrides: make(map[Key]Constructor)}
}

// Register installs c for role and subrole. Registering with an empty role
// is ignored.
func (r *Registrar) Register(role, subrole string, c Constructor) {
	if role == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[Key{Role: role, Subrole: subrole}] = c
}

// EventHandler builds the handler for el.
func (r *Registrar) EventHandler(el platform.Element, ctx Context) EventHandler {
	return r.Lookup(el)(el, ctx)
}

// Lookup returns the constructor for el.
func (r *Registrar) Lookup(el platform.Element) Constructor {
	role, err := el.Role()
	if err != nil {
		return Default
	}
	subrole, _ := el.Subrole()

	r.mu.RLock()
	c, ok := r.overrides[Key{Role: role, Subrole: subrole}]
	if !ok {
		c, ok = r.overrides[Key{Role: role}]
	}
	r.mu.RUnlock()
	if ok {
		return c
	}
	return builtin(role, subrole)
}

func builtin(role, subrole string) Constructor {
	switch role {
	case model.RoleApplication:
		return Application
	case model.RoleWindow:
		return Window
	case model.RoleStaticText:
		if subrole == model.SubroleTextAttachment {
			return TextAttachment
		}
		return StaticText
	case model.RoleButton:
		return Button
	case model.RoleCheckBox:
		if subrole == model.SubroleToggle {
			return Toggle
		}
		return Checkbox
	case model.RoleTextField:
		return TextField
	case model.RoleWebArea:
		return NewWebArea
	}
	return Default
}
