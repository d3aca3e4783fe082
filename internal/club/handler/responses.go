package handler

import (
	"time"

	"clubdomains/internal/club"
)

type ClubResponse struct {
	Name               string             `json:"name"`
	DisplayName        string             `json:"display_name"`
	Admin              string             `json:"admin"`
	Registrant         string             `json:"registrant"`
	TokenID            uint64             `json:"token_id"`
	Active             bool               `json:"active"`
	PendingInheritance bool               `json:"pending_inheritance"`
	Metadata           club.Metadata      `json:"metadata"`
	MemberCount        int                `json:"member_count"`
	History            []club.AdminChange `json:"history"`
	LastTransition     *club.Transition   `json:"last_transition,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func FromRecord(r *club.Record) ClubResponse {
	history := r.History
	if history == nil {
		history = []club.AdminChange{}
	}
	return ClubResponse{
		Name:               string(r.Name),
		DisplayName:        r.Name.Display(),
		Admin:              r.Admin.String(),
		Registrant:         r.Registrant.String(),
		TokenID:            r.TokenID,
		Active:             r.Active,
		PendingInheritance: r.PendingInheritance,
		Metadata:           r.Metadata,
		MemberCount:        len(r.Members),
		History:            history,
		LastTransition:     r.LastTransition,
		CreatedAt:          r.CreatedAt,
	}
}

type MembersResponse struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type RosterResponse struct {
	Name   string `json:"name"`
	User   string `json:"user"`
	Member bool   `json:"member"`
}

// ExpiryResponse reports the club's state after syncing with its domain.
type ExpiryResponse struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
	Active  bool   `json:"active"`
}
