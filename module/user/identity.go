package user

import (
	"context"

	"realchat/module/chat/model"
	"realchat/module/chat/store"
	"realchat/tools/errs"
	"realchat/tools/security"
)

// Identity is the authenticated identity a live session runs as. The
// external identity system issues the credential; this resolver only
// verifies it and loads the profile.
type Identity struct {
	UserID    string
	Name      string
	AvatarURL string
}

type Resolver struct {
	users store.UserStore
	opts  security.Options
}

func NewResolver(users store.UserStore, opts security.Options) *Resolver {
	return &Resolver{users: users, opts: opts}
}

// Resolve maps a bearer token to an identity. Any failure collapses to
// the transport/auth error: the connection is refused, never half-opened.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, errs.ErrUnauthorized
	}
	sub, err := security.VerifySubject(r.opts, token)
	if err != nil {
		return nil, errs.ErrUnauthorized.WithDetail(err.Error())
	}
	u, err := r.users.Get(ctx, sub)
	if err != nil {
		return nil, errs.ErrUnauthorized.WithDetail("unknown subject").WithRef(sub)
	}
	return &Identity{UserID: u.UserID, Name: u.Name, AvatarURL: u.AvatarURL}, nil
}

// Profile fetches the summary for an arbitrary user id (peer headers,
// contact lists).
func (r *Resolver) Profile(ctx context.Context, userID string, online bool) (*model.Summary, error) {
	u, err := r.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := u.Summary(online)
	return &s, nil
}
