package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const contactsPath = "/v1/contacts/"

var (
	NoContactMark    = errors.New("no_contact")
	NotEntitledMark  = errors.New("not_entitled")
	LookupFailedMark = errors.New("lookup_failed")
)

//counterfeiter:generate . Validator
type Validator interface {
	ValidateEmail(ctx context.Context, email string) (Contact, error)
}

// Contact is the CRM record matched to a requester's email.
type Contact struct {
	ID    string
	Email string
	Tags  []string
}

var _ Validator = GHLValidator{}

// GHLValidator checks an email against the GoHighLevel contacts API.
// Access is granted when the exact matching contact carries the
// configured access tag.
type GHLValidator struct {
	APIHost   string
	APIKey    string
	AccessTag string
}

func (g GHLValidator) ValidateEmail(ctx context.Context, email string) (Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Contact{}, mark.Message(NoContactMark, "No email was provided to look up")
	}

	contact, err := g.lookupContact(ctx, email)
	if err != nil {
		return Contact{}, errors.Wrap(err, "Failed to look up the contact for this email")
	}

	if !g.hasAccessTag(contact.Tags) {
		return Contact{}, mark.Message(NotEntitledMark, "Contact does not carry the access tag")
	}

	return contact, nil
}

func (g GHLValidator) lookupContact(ctx context.Context, email string) (Contact, error) {
	lookupURL := fmt.Sprintf("%s%s?email=%s", g.APIHost, contactsPath, url.QueryEscape(email))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return Contact{}, mark.Wrap(err, LookupFailedMark, "Failed to create contacts request")
	}

	request.Header.Set("Authorization", "Bearer "+g.APIKey)

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return Contact{}, mark.Wrap(err, LookupFailedMark, "Failed to reach the contacts endpoint")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return Contact{}, mark.Message(LookupFailedMark,
			fmt.Sprintf("Contacts endpoint returned status %d", response.StatusCode))
	}

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return Contact{}, mark.Wrap(err, LookupFailedMark, "Failed to read the contacts response")
	}

	contactList := contactsResponse{}
	if err := json.Unmarshal(responseBody, &contactList); err != nil {
		return Contact{}, mark.Wrap(err, LookupFailedMark, "Failed to unmarshal the contacts response")
	}

	// the endpoint fuzzy matches, only an exact email match counts
	for _, entry := range contactList.Contacts {
		if strings.ToLower(strings.TrimSpace(entry.Email)) == email {
			return Contact{
				ID:    entry.ID,
				Email: email,
				Tags:  entry.Tags.values,
			}, nil
		}
	}

	return Contact{}, mark.Message(NoContactMark, "No contact exists for this email")
}

func (g GHLValidator) hasAccessTag(tags []string) bool {
	accessTag := strings.ToLower(g.AccessTag)
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), accessTag) {
			return true
		}
	}

	return false
}

type contactsResponse struct {
	Contacts []contactEntry `json:"contacts"`
}

type contactEntry struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Tags  tagsList `json:"tags"`
}

// tagsList accepts both shapes the CRM returns: a JSON array of tags or
// a single comma separated string.
type tagsList struct {
	values []string
}

func (t *tagsList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		t.values = asList
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return errors.Wrap(err, "Tags field is neither a list nor a string")
	}

	for _, tag := range strings.Split(asString, ",") {
		t.values = append(t.values, strings.TrimSpace(tag))
	}

	return nil
}
