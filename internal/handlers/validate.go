package handlers

import (
	"fmt"
	"unicode/utf8"

	"prompthive/internal/models"
)

// Input limits for prompt metadata. Content has no length limit.
// Required-field checks live in the repository; these only bound sizes.
const (
	maxTitleLen    = 300
	maxTags        = 50
	maxTagLen      = 100
	maxCategoryLen = 100
	maxToneLen     = 100
)

// validateDraft checks the size of a new prompt's fields and returns the
// first problem found, or "".
func validateDraft(d *models.Draft) string {
	if msg := checkLen("title", d.Title, maxTitleLen); msg != "" {
		return msg
	}
	if msg := validateTags(d.Tags); msg != "" {
		return msg
	}
	return checkOptional(d.Category, d.Tone)
}

// validateChanges is validateDraft for a partial update.
func validateChanges(c *models.Changes) string {
	if c.Title != nil {
		if msg := checkLen("title", *c.Title, maxTitleLen); msg != "" {
			return msg
		}
	}
	if c.Tags != nil {
		if msg := validateTags(*c.Tags); msg != "" {
			return msg
		}
	}
	return checkOptional(c.Category, c.Tone)
}

func validateTags(tags []string) string {
	if len(tags) > maxTags {
		return fmt.Sprintf("too many tags (max %d)", maxTags)
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > maxTagLen {
			return fmt.Sprintf("tag is too long (max %d characters)", maxTagLen)
		}
	}
	return ""
}

func checkOptional(category, tone *string) string {
	if category != nil {
		if msg := checkLen("category", *category, maxCategoryLen); msg != "" {
			return msg
		}
	}
	if tone != nil {
		return checkLen("tone", *tone, maxToneLen)
	}
	return ""
}

func checkLen(field, value string, max int) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s is too long (max %d characters)", field, max)
	}
	return ""
}
