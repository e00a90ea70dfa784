package model

import "fmt"

// hitGroupNames maps the numeric hit groups the external parser emits to
// canonical names.
var hitGroupNames = map[int]string{
	1: "head",
	2: "chest",
	3: "stomach",
	4: "left_arm",
	5: "right_arm",
	6: "left_leg",
	7: "right_leg",
}

// HitGroupName returns the canonical name for a numeric hit group, or
// "group_N" for values outside the known set.
func HitGroupName(n int) string {
	if name, ok := hitGroupNames[n]; ok {
		return name
	}
	return fmt.Sprintf("group_%d", n)
}
