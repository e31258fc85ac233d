// FILE: logship/src/internal/destination/resolver.go
package destination

import (
	"context"
	"errors"
	"strings"

	"logship/src/internal/cwlogs"
	"logship/src/internal/guard"
	"logship/src/internal/identity"
	"logship/src/internal/naming"

	"github.com/lixenwraith/log"
)

// State is the outcome of resolution: where to put records and the token
// captured from an existing stream, if any
type State struct {
	Group  string
	Stream string
	Token  *string
}

// Options configure a Resolver. Metadata and Tags may be nil, in which case
// every template token expands to "unknown".
type Options struct {
	Group           string
	StreamTemplate  string
	CreateIfMissing bool
	Metadata        identity.MetadataProvider
	Tags            identity.TagProvider
}

// Resolver turns the configured group and stream template into a concrete
// destination, creating it when allowed. Every step is best effort.
type Resolver struct {
	opts   Options
	logger *log.Logger
}

func NewResolver(opts Options, logger *log.Logger) *Resolver {
	return &Resolver{opts: opts, logger: logger}
}

// Resolve expands the stream name and ensures the group and stream exist.
// Failures are logged and never abort resolution.
func (r *Resolver) Resolve(ctx context.Context, svc cwlogs.LogService) State {
	ctx = guard.Enter(ctx)

	state := State{
		Group:  r.opts.Group,
		Stream: naming.Expand(r.opts.StreamTemplate, r.lookupIdentity(ctx)),
	}

	r.ensureGroup(ctx, svc, state.Group)
	state.Token = r.ensureStream(ctx, svc, state.Group, state.Stream)

	r.logger.Info("msg", "Log destination resolved",
		"component", "destination_resolver",
		"log_group", state.Group,
		"log_stream", state.Stream,
		"has_token", state.Token != nil)

	return state
}

func (r *Resolver) lookupIdentity(ctx context.Context) naming.Values {
	v := naming.Values{InstanceID: naming.Unknown, InstanceName: naming.Unknown}

	// Plain names need no identity
	if !strings.Contains(r.opts.StreamTemplate, "%") || r.opts.Metadata == nil {
		return v
	}

	id, err := r.opts.Metadata.InstanceID(ctx)
	if err != nil || id == "" {
		r.logger.Warn("msg", "Instance id unavailable, using placeholder",
			"component", "destination_resolver",
			"placeholder", naming.Unknown,
			"error", err)
		return v
	}
	v.InstanceID = id
	v.InstanceName = id

	if r.opts.Tags == nil {
		return v
	}
	tags, err := r.opts.Tags.Tags(ctx, id)
	if err != nil {
		r.logger.Warn("msg", "Instance tags unavailable, using instance id as name",
			"component", "destination_resolver",
			"instance_id", id,
			"error", err)
		return v
	}
	if name := tags[identity.NameTag]; name != "" {
		v.InstanceName = name
	}
	return v
}

func (r *Resolver) ensureGroup(ctx context.Context, svc cwlogs.LogService, group string) {
	found, err := svc.DescribeGroup(ctx, group)
	if err != nil {
		r.logger.Error("msg", "Failed to describe log group",
			"component", "destination_resolver",
			"log_group", group,
			"error", err)
		return
	}
	if found {
		return
	}

	if !r.opts.CreateIfMissing {
		r.logger.Warn("msg", "Log group does not exist and creation is disabled",
			"component", "destination_resolver",
			"log_group", group)
		return
	}

	if err := svc.CreateGroup(ctx, group); err != nil && !alreadyExists(err) {
		r.logger.Error("msg", "Failed to create log group",
			"component", "destination_resolver",
			"log_group", group,
			"error", err)
		return
	}
	r.logger.Info("msg", "Log group created",
		"component", "destination_resolver",
		"log_group", group)
}

// ensureStream returns the upload token of an existing stream
func (r *Resolver) ensureStream(ctx context.Context, svc cwlogs.LogService, group, stream string) *string {
	existing, err := svc.DescribeStream(ctx, group, stream)
	if err != nil {
		r.logger.Error("msg", "Failed to describe log stream",
			"component", "destination_resolver",
			"log_group", group,
			"log_stream", stream,
			"error", err)
		return nil
	}
	if existing != nil {
		return existing.UploadSequenceToken
	}

	if !r.opts.CreateIfMissing {
		r.logger.Warn("msg", "Log stream does not exist and creation is disabled",
			"component", "destination_resolver",
			"log_group", group,
			"log_stream", stream)
		return nil
	}

	if err := svc.CreateStream(ctx, group, stream); err != nil && !alreadyExists(err) {
		r.logger.Error("msg", "Failed to create log stream",
			"component", "destination_resolver",
			"log_group", group,
			"log_stream", stream,
			"error", err)
		return nil
	}
	r.logger.Info("msg", "Log stream created",
		"component", "destination_resolver",
		"log_group", group,
		"log_stream", stream)
	return nil
}

func alreadyExists(err error) bool {
	var exists *cwlogs.ResourceAlreadyExistsError
	return errors.As(err, &exists)
}
