//go:build property

package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPropertyGroupTargetsPartitions(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("every target lands in exactly one group", prop.ForAll(
		func(groupCount int, perGroup int) bool {
			snapshot := make([]TargetStatus, 0, groupCount*perGroup)
			for g := 0; g < groupCount; g++ {
				for i := 0; i < perGroup; i++ {
					snapshot = append(snapshot, TargetStatus{
						Name:  fmt.Sprintf("t%d-%d", g, i),
						Group: fmt.Sprintf("group%02d", g),
					})
				}
			}
			groups := groupTargets(snapshot)
			if len(groups) != groupCount {
				return false
			}
			total := 0
			for i, group := range groups {
				if i > 0 && groups[i-1].Name >= group.Name {
					return false
				}
				for _, target := range group.Targets {
					if target.Group != group.Name {
						return false
					}
				}
				total += len(group.Targets)
			}
			return total == len(snapshot)
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 10),
	))

	props.Property("target lines never exceed width", prop.ForAll(
		func(width int, failures int) bool {
			target := TargetStatus{Name: "example-target-name", Address: "2001:db8::1234:5678", Probed: true}
			for i := 0; i < failures; i++ {
				target.History = append(target.History, time.Duration(i)*time.Millisecond)
			}
			return len([]rune(styledRunesToString(formatTargetLine(width, target)))) <= width
		},
		gen.IntRange(1, 200),
		gen.IntRange(0, 40),
	))

	props.TestingRun(t)
}
