package models

import (
	"time"

	id "taskhub/pkg/domain"
)

// Project is the root of the workspace graph.
//
// Invariants:
//   - Name is non-empty, at most 255 characters and globally unique
//   - Description, when present, is at most 255 characters
//   - OwnerID never changes after creation
type Project struct {
	ID          id.ProjectID `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	OwnerID     id.UserID    `json:"owner_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func NewProject(projectID id.ProjectID, name string, description *string, ownerID id.UserID, now time.Time) (*Project, error) {
	name, err := requiredText("name", name, MaxProjectNameLength)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", description, MaxProjectDescriptionLength)
	if err != nil {
		return nil, err
	}
	return &Project{
		ID:          projectID,
		Name:        name,
		Description: desc,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ProjectPatch carries optional changes. An empty description clears it.
type ProjectPatch struct {
	Name        *string
	Description *string
}

func (p ProjectPatch) IsEmpty() bool { return p.Name == nil && p.Description == nil }

// Apply validates the patch and mutates the project only if every field passes.
func (p *Project) Apply(patch ProjectPatch, now time.Time) error {
	name := p.Name
	desc := p.Description
	if patch.Name != nil {
		n, err := requiredText("name", *patch.Name, MaxProjectNameLength)
		if err != nil {
			return err
		}
		name = n
	}
	if patch.Description != nil {
		d, err := optionalText("description", patch.Description, MaxProjectDescriptionLength)
		if err != nil {
			return err
		}
		desc = d
	}
	p.Name = name
	p.Description = desc
	p.UpdatedAt = now
	return nil
}

// IsOwnedBy reports whether userID owns the project.
func (p *Project) IsOwnedBy(userID id.UserID) bool {
	return p.OwnerID == userID
}
