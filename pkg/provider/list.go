package provider

import (
	"context"
	"fmt"
)

// ListAllVersions drains every page of ListVersions for prefix.
//
// The first error aborts the listing and no records are returned: callers
// never act on a partial view of the bucket.
func ListAllVersions(ctx context.Context, p Provider, prefix string) ([]VersionRecord, error) {
	var (
		all   []VersionRecord
		token string
		seen  = make(map[string]struct{})
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := p.ListVersions(ctx, ListVersionsOptions{
			Prefix:            prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page.Versions...)

		if !page.IsTruncated || page.ContinuationToken == "" {
			break
		}
		if _, dup := seen[page.ContinuationToken]; dup {
			return nil, &ProviderError{
				Op:       "ListVersions",
				Provider: p.Type(),
				Err:      fmt.Errorf("%w: continuation token %q repeated", ErrMalformedListing, page.ContinuationToken),
			}
		}
		seen[page.ContinuationToken] = struct{}{}
		token = page.ContinuationToken
	}

	if all == nil {
		all = []VersionRecord{}
	}
	return all, nil
}
