package service

import "warbler/internal/config"

// EdgePolicy controls how follows and likes treat repeats and self-targets.
type EdgePolicy struct {
	// RejectDuplicates turns a repeated follow or like into ErrDuplicateEdge
	// instead of a silent no-op.
	RejectDuplicates bool
	AllowSelf        bool
}

// DefaultEdgePolicy ignores duplicates and allows self edges.
var DefaultEdgePolicy = EdgePolicy{AllowSelf: true}

// FollowPolicy builds the follow policy from configuration.
func FollowPolicy(cfg *config.Config) EdgePolicy {
	return EdgePolicy{
		RejectDuplicates: cfg.EdgeDuplicatePolicy == config.EdgePolicyReject,
		AllowSelf:        cfg.AllowSelfFollow,
	}
}

// LikePolicy builds the like policy from configuration.
func LikePolicy(cfg *config.Config) EdgePolicy {
	return EdgePolicy{
		RejectDuplicates: cfg.EdgeDuplicatePolicy == config.EdgePolicyReject,
		AllowSelf:        cfg.AllowSelfLike,
	}
}

func edgeResult(created bool) string {
	if created {
		return "created"
	}
	return "duplicate"
}
