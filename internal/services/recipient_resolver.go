package services

import (
	"context"
	"fmt"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
)

type RecipientResolver interface {
	// Lists one tuple per member and eligible channel. An empty group yields an empty list.
	ResolveRecipients(ctx context.Context, groupID string) ([]domain.Recipient, error)
}

type recipientResolver struct {
	members repository.MembershipRepository
}

func NewRecipientResolver(members repository.MembershipRepository) RecipientResolver {
	return &recipientResolver{members: members}
}

func (r *recipientResolver) ResolveRecipients(ctx context.Context, groupID string) ([]domain.Recipient, error) {
	memberships, err := r.members.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list memberships of group %s: %w", groupID, err)
	}

	if len(memberships) == 0 {
		return []domain.Recipient{}, nil
	}

	userIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}

	preferences, err := r.members.ListPreferences(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list preferences of group %s: %w", groupID, err)
	}

	type key struct {
		userID  string
		channel domain.Channel
	}
	eligible := make(map[key]string, len(preferences))
	for _, p := range preferences {
		if p.Eligible() {
			eligible[key{p.UserID, p.Channel}] = *p.Destination
		}
	}

	recipients := make([]domain.Recipient, 0, len(eligible))
	for _, m := range memberships {
		for _, c := range domain.Channels {
			if destination, ok := eligible[key{m.UserID, c}]; ok {
				recipients = append(recipients, domain.Recipient{
					UserID:      m.UserID,
					Channel:     c,
					Destination: destination,
				})
			}
		}
	}

	return recipients, nil
}
