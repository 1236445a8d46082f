package core

// PageGroup is a maximal contiguous run of pages sharing one color mode.
// Start and End are 0-based inclusive page indexes.
type PageGroup struct {
	Start      int
	End        int
	Monochrome bool
}

// Pages returns the number of pages in the group.
func (g PageGroup) Pages() int {
	return g.End - g.Start + 1
}

// SplitPageGroups partitions a totalPages document into maximal contiguous
// same-mode runs, in natural reading order. colorPages and bwPages hold
// 1-based page numbers; values outside [1, totalPages] are ignored. A page
// present in both sets, or in neither, defaults to monochrome.
func SplitPageGroups(totalPages int, colorPages, bwPages []int) []PageGroup {
	if totalPages <= 0 {
		return nil
	}

	color := make([]bool, totalPages)
	for _, p := range colorPages {
		if p >= 1 && p <= totalPages {
			color[p-1] = true
		}
	}
	for _, p := range bwPages {
		if p >= 1 && p <= totalPages {
			color[p-1] = false
		}
	}

	groups := []PageGroup{{Start: 0, End: 0, Monochrome: !color[0]}}
	for page := 1; page < totalPages; page++ {
		last := &groups[len(groups)-1]
		if last.Monochrome == !color[page] {
			last.End = page
			continue
		}
		groups = append(groups, PageGroup{Start: page, End: page, Monochrome: !color[page]})
	}
	return groups
}

// EmissionOrder returns the groups in the order they must be sent to the
// printer: the reverse of natural reading order. The output tray stacks
// pages last-printed-on-top, so printing the last natural group first
// leaves the finished stack reading top-to-bottom as page 1..N.
func EmissionOrder(groups []PageGroup) []PageGroup {
	out := make([]PageGroup, len(groups))
	for i, g := range groups {
		out[len(groups)-1-i] = g
	}
	return out
}
