package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opino-backend/pkg/errors"
)

func TestValidateCommentAcceptsAndNormalizes(t *testing.T) {
	input, err := ValidateComment(CommentRequest{
		SiteName: "my-site_1",
		PathName: "/blog/post.html",
		Message:  "  hello world  ",
		Author:   "  Bob  ",
		Parent:   "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, "my-site_1", input.SiteName)
	assert.Equal(t, "/blog/post.html", input.PathName)
	assert.Equal(t, "hello world", input.Message)
	assert.Equal(t, "Bob", input.Author)
	assert.Empty(t, input.Parent, "blank parent is coerced to none")
}

func TestValidateCommentDefaultsAuthor(t *testing.T) {
	input, err := ValidateComment(CommentRequest{
		SiteName: "s1",
		PathName: "/p",
		Message:  "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthor, input.Author)
}

func TestValidateCommentRejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     CommentRequest
		wantMsg string
	}{
		{
			"missing siteName",
			CommentRequest{PathName: "/p", Message: "hi"},
			"siteName is required",
		},
		{
			"bad siteName charset",
			CommentRequest{SiteName: "my site!", PathName: "/p", Message: "hi"},
			"invalid site ID format",
		},
		{
			"bad path charset",
			CommentRequest{SiteName: "s1", PathName: "/p?x=1", Message: "hi"},
			"invalid path characters",
		},
		{
			"whitespace-only message",
			CommentRequest{SiteName: "s1", PathName: "/p", Message: "   "},
			"message is required",
		},
		{
			"oversize message",
			CommentRequest{SiteName: "s1", PathName: "/p", Message: strings.Repeat("x", 10001)},
			"message too long",
		},
		{
			"oversize author",
			CommentRequest{SiteName: "s1", PathName: "/p", Message: "hi", Author: strings.Repeat("a", 101)},
			"author too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateComment(tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, apperrors.GetAppError(err).Message, tt.wantMsg)
		})
	}
}

func TestValidateSite(t *testing.T) {
	input, err := ValidateSite(SiteRequest{Domain: " Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "example.com", input.Domain)

	for _, domain := range []string{"", "a.b", "no_dots", "example.c", "-bad.com", "exa mple.com", "example.123"} {
		_, err := ValidateSite(SiteRequest{Domain: domain})
		assert.Error(t, err, "domain %q should be rejected", domain)
	}

	_, err = ValidateSite(SiteRequest{Domain: "sub.my-shop.co.uk"})
	assert.NoError(t, err)
}
