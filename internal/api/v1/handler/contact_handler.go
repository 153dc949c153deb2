package handler

import (
	"context"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/store"

	"github.com/rs/zerolog"
)

type ContactHandler struct {
	registry *store.Registry
	logger   zerolog.Logger
}

func NewContactHandler(registry *store.Registry, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{registry: registry, logger: logger.With().Str("handler", "ContactHandler").Logger()}
}

// ListContacts refreshes the contacts and applies the query parameters as the current filter.
func (h *ContactHandler) ListContacts(ctx context.Context, input *operation.ListContactsInput) (*operation.ListContactsOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Contacts.FetchContacts(ctx); !res.Success {
		return nil, resultError(res)
	}
	st.Contacts.ClearFilters()
	st.Contacts.SetSearchQuery(input.Search)
	for _, tag := range input.Tags {
		st.Contacts.AddSelectedTag(tag)
	}
	snap := st.Contacts.Snapshot()
	// filtered from this request's parameters so a concurrent list cannot leak its filter in
	tags := make([]string, 0, len(input.Tags))
	for _, t := range input.Tags {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return &operation.ListContactsOutput{Body: dto.ContactListResponseDTO{
		Contacts:     snap.Contacts,
		Filtered:     store.FilterContacts(snap.Contacts, input.Search, tags),
		SearchQuery:  input.Search,
		SelectedTags: tags,
		AllTags:      snap.AllTags,
	}}, nil
}

func (h *ContactHandler) CreateContact(ctx context.Context, input *operation.CreateContactInput) (*operation.ContactOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	contact, res := st.Contacts.CreateContact(ctx, input.Body.Input())
	if !res.Success {
		return nil, resultError(res)
	}
	h.logger.Info().Str("user_id", contact.UserID).Str("contact_id", contact.ID).Msg("Contact created")
	return &operation.ContactOutput{Body: *contact}, nil
}

func (h *ContactHandler) UpdateContact(ctx context.Context, input *operation.UpdateContactInput) (*operation.ContactOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	contact, res := st.Contacts.UpdateContact(ctx, input.ContactID, input.Body.Input())
	if !res.Success {
		return nil, resultError(res)
	}
	return &operation.ContactOutput{Body: *contact}, nil
}

func (h *ContactHandler) DeleteContact(ctx context.Context, input *operation.DeleteContactInput) (*operation.DeleteContactOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Contacts.DeleteContact(ctx, input.ContactID); !res.Success {
		return nil, resultError(res)
	}
	return &operation.DeleteContactOutput{}, nil
}

func (h *ContactHandler) ListTags(ctx context.Context, input *operation.ListTagsInput) (*operation.ListTagsOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	if res := st.Contacts.FetchContacts(ctx); !res.Success {
		return nil, resultError(res)
	}
	return &operation.ListTagsOutput{Body: dto.TagsResponseDTO{Tags: st.Contacts.AllTags()}}, nil
}
