// FILE: logship/src/internal/identity/identity.go
package identity

import "context"

// NameTag is the tag key holding an instance's human-readable name
const NameTag = "Name"

// MetadataProvider reports the identity of the instance the process runs on
type MetadataProvider interface {
	InstanceID(ctx context.Context) (string, error)
}

// TagProvider looks up the tags attached to an instance
type TagProvider interface {
	Tags(ctx context.Context, instanceID string) (map[string]string, error)
}
