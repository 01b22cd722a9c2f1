// Package extract locates record regions in legacy forum markup and pulls typed fields out of them.
package extract

import (
	"github.com/PuerkitoBio/goquery"

	"skinbuilder/layout"
)

// Region is a located sub-tree of the document.
type Region struct {
	Kind layout.Kind
	Root *goquery.Selection
	Rows []*goquery.Selection // Data rows in document order, header rows removed
}

// Locate finds the region of the given kind under root.
// Table regions expose their direct tbody rows minus the leading header rows.
func Locate(root *goquery.Selection, kind layout.Kind, l *layout.Layout) (*Region, error) {
	selector, headerRows := l.Region(kind)
	if selector == "" {
		return nil, &RegionNotFoundError{Kind: kind}
	}

	container := root.Find(selector).First()
	if container.Length() == 0 {
		return nil, &RegionNotFoundError{Kind: kind, Selector: selector}
	}

	region := &Region{Kind: kind, Root: container}
	if kind == layout.TopicHeaderBlock {
		return region, nil
	}

	container.ChildrenFiltered("tbody").ChildrenFiltered("tr").Each(func(i int, row *goquery.Selection) {
		if i < headerRows {
			return
		}
		region.Rows = append(region.Rows, row)
	})

	return region, nil
}

// Cells returns the direct td children of a row.
func Cells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, td)
	})
	return cells
}
