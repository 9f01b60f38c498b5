package testutils

import (
	"context"

	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

// TestIdentity is the caller used by most tests.
var TestIdentity = mdfcontext.Identity{
	UserID: TestUserID,
	Email:  TestUserEmail,
	Name:   TestUserName,
}

// CuratorIdentity is a caller listed as curator.
var CuratorIdentity = mdfcontext.Identity{
	UserID: TestCuratorID,
	Email:  "curator@example.org",
	Name:   "Curator",
}

// InjectIdentityIntoContext adds the caller identity to the context for testing.
func InjectIdentityIntoContext(ctx context.Context, identity mdfcontext.Identity) context.Context {
	return mdfcontext.InjectIdentity(mdfcontext.InjectRequestID(ctx), identity)
}
