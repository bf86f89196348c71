package entity

import "fmt"

// OwnerKind discriminates who owns a piece of generated content.
type OwnerKind string

const (
	OwnerKindUser      OwnerKind = "user"
	OwnerKindAnonymous OwnerKind = "anonymous"
)

// Owner is either a registered user or an anonymous session.
// Exactly one kind applies at any time.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// UserOwner returns an owner reference to a registered user.
func UserOwner(userID string) Owner {
	return Owner{Kind: OwnerKindUser, ID: userID}
}

// AnonymousOwner returns an owner reference to an anonymous session.
func AnonymousOwner(sessionID string) Owner {
	return Owner{Kind: OwnerKindAnonymous, ID: sessionID}
}

// IsAnonymous reports whether the owner is an anonymous session.
func (o Owner) IsAnonymous() bool { return o.Kind == OwnerKindAnonymous }

// Validate checks the discriminator and id.
func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerKindUser, OwnerKindAnonymous:
	default:
		return &ValidationError{Field: "owner.kind", Message: fmt.Sprintf("unknown owner kind %q", o.Kind)}
	}
	if o.ID == "" {
		return &ValidationError{Field: "owner.id", Message: "is required"}
	}
	return nil
}

func (o Owner) String() string {
	return string(o.Kind) + ":" + o.ID
}
