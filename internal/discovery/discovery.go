// Package discovery locates login entry points and authentication forms in
// unpredictable page markup and normalizes them into FormDescriptors.
package discovery

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/models"
)

var (
	ErrLoginLinkNotFound = fmt.Errorf("login link not found")
	ErrFormNotFound      = fmt.Errorf("form not found")
	ErrActionMissing     = fmt.Errorf("form action attribute is empty")
)

// ParseDocument parses raw HTML into a queryable document.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// FindLoginLink applies LoginLinkRules to the landing page and returns the
// absolute signin URL. Deterministic for a given document: rules fire in
// order and the first document-order match wins.
func FindLoginLink(doc *goquery.Document, siteRoot string, logger arbor.ILogger) (string, error) {
	for _, rule := range LoginLinkRules {
		var target string

		doc.Find(rule.Selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			var candidate string
			if goquery.NodeName(s) == "form" {
				candidate = strings.TrimSpace(s.AttrOr("action", ""))
				if candidate == "" || !matchesAny(candidate, rule.ActionMarkers) {
					return true
				}
			} else {
				candidate = strings.TrimSpace(s.AttrOr("href", ""))
				if candidate == "" {
					return true
				}
				if len(rule.HrefMarkers) > 0 && !matchesAny(candidate, rule.HrefMarkers) {
					return true
				}
			}
			target = candidate
			return false
		})

		if target != "" {
			resolved := common.ResolveURL(siteRoot, target)
			logger.Debug().
				Str("rule", rule.Name).
				Str("url", resolved).
				Msg("Login entry point located")
			return resolved, nil
		}
	}

	return "", ErrLoginLinkNotFound
}

// FindForm applies a FormRule list to the document and returns the first
// matching form as a FormDescriptor with its action resolved against the
// site root and its inputs captured in document order.
func FindForm(doc *goquery.Document, rules []FormRule, siteRoot string, logger arbor.ILogger) (*models.FormDescriptor, error) {
	for _, rule := range rules {
		var form *goquery.Selection

		doc.Find(rule.Selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if len(rule.ActionMarkers) > 0 {
				action := strings.TrimSpace(s.AttrOr("action", ""))
				if !matchesAny(action, rule.ActionMarkers) {
					return true
				}
			}
			form = s
			return false
		})

		if form == nil {
			continue
		}

		action := strings.TrimSpace(form.AttrOr("action", ""))
		if action == "" {
			return nil, ErrActionMissing
		}

		descriptor := models.NewFormDescriptor(common.ResolveURL(siteRoot, action))
		form.Find("input").Each(func(i int, input *goquery.Selection) {
			name := strings.TrimSpace(input.AttrOr("name", ""))
			if name == "" {
				return
			}
			descriptor.Add(name, input.AttrOr("value", ""))
		})

		logger.Debug().
			Str("rule", rule.Name).
			Str("action", descriptor.ActionURL).
			Int("fields", descriptor.Len()).
			Msg("Form located")
		return descriptor, nil
	}

	return nil, ErrFormNotFound
}

// FindSigninForm locates the credential form on the signin page.
func FindSigninForm(doc *goquery.Document, siteRoot string, logger arbor.ILogger) (*models.FormDescriptor, error) {
	return FindForm(doc, SigninFormRules, siteRoot, logger)
}

// FindMFAForm locates the one-time-code form on the challenge page.
func FindMFAForm(doc *goquery.Document, siteRoot string, logger arbor.ILogger) (*models.FormDescriptor, error) {
	return FindForm(doc, MFAFormRules, siteRoot, logger)
}
