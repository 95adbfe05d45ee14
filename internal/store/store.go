// ABOUTME: Store interface and data types for hermes-gateway persistence
// ABOUTME: Defines the Workspace struct and the Store interface for CRUD operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Workspace is a named container for a user's executions and memory
// namespaces.
type Workspace struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceUpdate carries the mutable fields for UpdateWorkspace. Nil
// fields are left unchanged.
type WorkspaceUpdate struct {
	Name        *string
	Description *string
}

// Store defines workspace persistence operations
type Store interface {
	CreateWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	ListWorkspaces(ctx context.Context, ownerID string) ([]*Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, upd WorkspaceUpdate) (*Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error
	Close() error
}
