package members

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type cognitoAPI interface {
	AdminUpdateUserAttributes(context.Context, *cognitoidentityprovider.AdminUpdateUserAttributesInput, ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminUpdateUserAttributesOutput, error)
}

// AttributeUpdater pushes profile changes into the Cognito user pool so the
// ID token claims stay in sync with the member table.
type AttributeUpdater struct {
	client     cognitoAPI
	userPoolID string
	logger     *logging.Logger
}

// NewAttributeUpdater builds a Cognito attribute updater.
func NewAttributeUpdater(client cognitoAPI, userPoolID string, logger *logging.Logger) *AttributeUpdater {
	if client == nil {
		panic("members: cognito client cannot be nil")
	}
	if userPoolID == "" {
		panic("members: user pool id cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AttributeUpdater{client: client, userPoolID: userPoolID, logger: logger}
}

// allowed custom attributes, mirroring the user pool schema.
var allowedAttributes = map[string]bool{
	"given_name":                true,
	"family_name":               true,
	"phone_number":              true,
	"custom:membershipCategory": true,
	"custom:referenceNo":        true,
	"custom:residentialAddress": true,
}

// Update applies the given attributes to the user identified by email.
// Unknown attribute names are rejected before any call leaves the process.
func (u *AttributeUpdater) Update(ctx context.Context, email string, attrs map[string]string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("members: email required")
	}
	if len(attrs) == 0 {
		return errors.New("members: no attributes to update")
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if !allowedAttributes[name] {
			return fmt.Errorf("members: attribute %q not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	userAttrs := make([]cognitotypes.AttributeType, 0, len(names))
	for _, name := range names {
		userAttrs = append(userAttrs, cognitotypes.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(attrs[name]),
		})
	}

	_, err := u.client.AdminUpdateUserAttributes(ctx, &cognitoidentityprovider.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(u.userPoolID),
		Username:       aws.String(email),
		UserAttributes: userAttrs,
	})
	if err != nil {
		return fmt.Errorf("members: failed to update attributes for %s: %w", email, err)
	}

	u.logger.Info("updated user attributes", "email", email, "attributes", names)
	return nil
}
