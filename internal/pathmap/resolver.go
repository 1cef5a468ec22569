package pathmap

import (
	"context"
	"log"
	"strings"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// PathConverter is the device facility mapping a share URL onto the device's
// own mount point.
type PathConverter interface {
	ConvertedPath(ctx context.Context, path string) (string, error)
}

// Resolver rewrites server-reported media paths into locations the playback
// device can open. Rules are immutable once loaded and evaluated in
// configured order, first match wins.
type Resolver struct {
	rules     []Rule
	converter PathConverter
	logger    *log.Logger
}

func NewResolver(rules []Rule, converter PathConverter, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{rules: rules, converter: converter, logger: logger}
}

// Resolve rewrites item.File in place. Resolution never fails: when no rule
// matches and the share heuristic does not apply (or the device cannot
// convert the share), the item degrades to its HTTP streaming URL.
func (r *Resolver) Resolve(ctx context.Context, item *plex.Item) {
	file := strings.ReplaceAll(item.File, "\\", "/")

	for _, rule := range r.rules {
		if rule.Matches(file) {
			item.File = rule.Convert(file)
			return
		}
	}

	if strings.HasPrefix(file, "//") {
		if converted, ok := r.convertShare(ctx, file); ok {
			item.File = converted
			return
		}
	}

	r.logger.Printf("pathmap: %q will be played using HTTP streaming", item.Title)
	item.File = item.HTTPFile
}

// convertShare splits a //server/share/rest path at the share-root boundary,
// converts only the root through the device, and re-appends the remainder.
func (r *Resolver) convertShare(ctx context.Context, file string) (string, bool) {
	slash := strings.IndexByte(file[2:], '/')
	if slash < 0 {
		return "", false
	}
	slash += 2
	next := strings.IndexByte(file[slash+1:], '/')
	if next < 0 {
		return "", false
	}
	slash += 1 + next

	share := "smb:" + file[:slash+1]
	converted, err := r.converter.ConvertedPath(ctx, share)
	if err != nil {
		r.logger.Printf("pathmap: device cannot convert share %s: %v", share, err)
		return "", false
	}
	if !strings.HasSuffix(converted, "/") {
		converted += "/"
	}
	return converted + file[slash+1:], true
}
