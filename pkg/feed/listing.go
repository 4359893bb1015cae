package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/podfetch/pkg/domain"
)

// node is a generic xml element, listing tags are matched case-insensitively
type node struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

func (n node) is(name string) bool {
	return strings.EqualFold(strings.TrimSpace(n.XMLName.Local), name)
}

// LoadListing reads the podcast listings file. The expected format is
//
//	<podcasts>
//	  <item>
//	    <name>Some Show</name>
//	    <category>Tech</category>
//	    <url>https://example.com/feed.xml</url>
//	    <init/>
//	    <ignore_not_modified/>
//	  </item>
//	</podcasts>
//
// Items without a name or a valid url are skipped.
func LoadListing(path string) ([]domain.Feed, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config or cli
	if err != nil {
		return nil, fmt.Errorf("read listings file %s: %w", path, err)
	}
	return ParseListing(data)
}

// ParseListing parses listings content, see LoadListing for the format
func ParseListing(data []byte) ([]domain.Feed, error) {
	var root node
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}
	if !root.is("podcasts") {
		return nil, fmt.Errorf("root element <podcasts> not found, got <%s>", root.XMLName.Local)
	}

	var feeds []domain.Feed
	for _, item := range root.Nodes {
		if !item.is("item") {
			continue
		}
		f := domain.Feed{}
		for _, field := range item.Nodes {
			switch {
			case field.is("name"):
				f.Name = strings.TrimSpace(field.Content)
			case field.is("category"):
				f.Category = strings.TrimSpace(field.Content)
			case field.is("url"):
				f.URL = strings.TrimSpace(field.Content)
			case field.is("init"):
				f.Init = true
			case field.is("ignore_not_modified"):
				f.IgnoreNotModified = true
			}
		}
		if f.Name == "" || !ValidURL(f.URL) {
			lgr.Printf("[ERROR] skipping listing item %q with url %q, name and valid url required", f.Name, f.URL)
			continue
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}
