package handler

import (
	"strings"

	"clubdomains/internal/club"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

// CreateRequest is the body for POST /clubs.
type CreateRequest struct {
	Name     string        `json:"name"`
	Admin    string        `json:"admin,omitempty"`
	Metadata club.Metadata `json:"metadata"`

	name  names.Name
	admin id.Address
}

// Validate parses the name and admin. An omitted admin defaults to the caller
// and is filled in by the handler.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	name, err := names.Parse(strings.TrimSpace(r.Name))
	if err != nil {
		return err
	}
	r.name = name
	if strings.TrimSpace(r.Admin) != "" {
		admin, err := id.ParseAddress(r.Admin)
		if err != nil {
			return err
		}
		r.admin = admin
	}
	return r.Metadata.Validate()
}

// AdminRequest is the body for POST /clubs/{name}/admin.
type AdminRequest struct {
	Admin string `json:"admin"`

	admin id.Address
}

func (r *AdminRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	admin, err := id.ParseAddress(r.Admin)
	if err != nil {
		return err
	}
	r.admin = admin
	return nil
}

// MetadataRequest is the body for PUT /clubs/{name}/metadata.
type MetadataRequest struct {
	club.Metadata
}

func (r *MetadataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return r.Metadata.Validate()
}

// MemberRequest is the body for POST /clubs/{name}/members.
type MemberRequest struct {
	Member string `json:"member"`

	member id.Address
}

func (r *MemberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	member, err := id.ParseAddress(r.Member)
	if err != nil {
		return err
	}
	r.member = member
	return nil
}
