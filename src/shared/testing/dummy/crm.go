package dummy

import (
	"context"
	"strings"

	"github.com/tonefield/stem-splitter-be/src/server/crm"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
)

var _ crm.Validator = &CRMValidator{}

func NewDummyCRMValidator(accessTag string) *CRMValidator {
	return &CRMValidator{
		AccessTag: accessTag,
		Contacts:  map[string][]string{},
	}
}

// CRMValidator resolves emails against a canned contact list.
// Contacts maps an email to its tags.
type CRMValidator struct {
	Unavailable bool
	AccessTag   string
	Contacts    map[string][]string
}

func (c *CRMValidator) ValidateEmail(ctx context.Context, email string) (crm.Contact, error) {
	if c.Unavailable {
		return crm.Contact{}, mark.Message(crm.LookupFailedMark, "Dummy CRM is unavailable")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	tags, ok := c.Contacts[email]
	if !ok {
		return crm.Contact{}, mark.Message(crm.NoContactMark, "No contact exists for this email")
	}

	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), strings.ToLower(c.AccessTag)) {
			return crm.Contact{
				Email: email,
				Tags:  tags,
			}, nil
		}
	}

	return crm.Contact{}, mark.Message(crm.NotEntitledMark, "Contact does not carry the access tag")
}
