package operation

import (
	"bizcard/internal/api/v1/dto"
	"bizcard/internal/model"
)

type ListContactsInput struct {
	Search string   `query:"search" doc:"Matches name, company, email and position, case-insensitive"`
	Tags   []string `query:"tags" doc:"Contacts carrying any of these tags"`
}

type ListContactsOutput struct {
	Body dto.ContactListResponseDTO `json:"body"`
}

type CreateContactInput struct {
	Body dto.ContactRequestDTO `json:"body"`
}

type ContactOutput struct {
	Body model.Contact `json:"body"`
}

type UpdateContactInput struct {
	ContactID string                `path:"contactId" doc:"Contact ID"`
	Body      dto.ContactRequestDTO `json:"body"`
}

type DeleteContactInput struct {
	ContactID string `path:"contactId" doc:"Contact ID"`
}

type DeleteContactOutput struct {
	// 204 No Content - no body
}

type ListTagsInput struct{}

type ListTagsOutput struct {
	Body dto.TagsResponseDTO `json:"body"`
}
