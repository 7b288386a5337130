// Package timetable turns the hand-authored schedule skeleton into flat,
// queryable class records and reconciles them with persisted status.
package timetable

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// ParseSkeleton decodes a YAML skeleton of the form
//
//	CSE:
//	  "2":
//	    "1":
//	      Monday:
//	        "9-10": {code: CS104, subject: ..., venue: ..., professor: ...}
//
// keeping every level in document order. Anchors, aliases and "<<" merge
// keys are expanded at every level. Levels that are not mappings are treated
// as empty and leaves that are not mappings become empty slots.
func ParseSkeleton(data []byte) (models.ScheduleSkeleton, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return models.ScheduleSkeleton{}, fmt.Errorf("parse skeleton: %w", err)
	}

	var skeleton models.ScheduleSkeleton
	if root.Kind == 0 || len(root.Content) == 0 {
		return skeleton, nil
	}

	doc := resolve(root.Content[0])
	if doc.Kind != yaml.MappingNode {
		if isNull(doc) {
			return skeleton, nil
		}
		return skeleton, fmt.Errorf("parse skeleton: top level must be a mapping of branches")
	}

	for _, branch := range pairs(doc) {
		b := models.BranchSchedule{Branch: branch.key}
		for _, sem := range pairs(branch.value) {
			s := models.SemesterSchedule{Semester: sem.key}
			for _, sec := range pairs(sem.value) {
				section := models.SectionSchedule{Section: sec.key}
				for _, day := range pairs(sec.value) {
					d := models.DaySchedule{Day: day.key}
					for _, slot := range pairs(day.value) {
						d.Slots = append(d.Slots, models.SlotEntry{Time: slot.key, Class: decodeDescriptor(slot.value)})
					}
					section.Days = append(section.Days, d)
				}
				s.Sections = append(s.Sections, section)
			}
			b.Semesters = append(b.Semesters, s)
		}
		skeleton.Branches = append(skeleton.Branches, b)
	}

	return skeleton, nil
}

type nodePair struct {
	key   string
	value *yaml.Node
}

// maxAliasDepth bounds alias chains so a self-referencing anchor cannot loop.
const maxAliasDepth = 32

func resolve(node *yaml.Node) *yaml.Node {
	for depth := 0; node != nil && node.Kind == yaml.AliasNode; depth++ {
		if depth == maxAliasDepth {
			return nil
		}
		node = node.Alias
	}
	return node
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Value == "<<" && (node.Tag == "" || node.Tag == "!!merge")
}

// pairs lists the entries of a mapping. Keys written explicitly win over keys
// pulled in through "<<"; merged keys keep the position of the merge entry.
func pairs(node *yaml.Node) []nodePair {
	return mergedPairs(node, 0)
}

func mergedPairs(node *yaml.Node, depth int) []nodePair {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode || depth > maxAliasDepth {
		return nil
	}

	explicit := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if !isMergeKey(node.Content[i]) {
			explicit[node.Content[i].Value] = true
		}
	}

	out := make([]nodePair, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !isMergeKey(key) {
			out = append(out, nodePair{key: key.Value, value: value})
			seen[key.Value] = true
			continue
		}

		sources := []*yaml.Node{value}
		if v := resolve(value); v != nil && v.Kind == yaml.SequenceNode {
			sources = v.Content
		}
		for _, src := range sources {
			for _, p := range mergedPairs(src, depth+1) {
				if explicit[p.key] || seen[p.key] {
					continue
				}
				out = append(out, p)
				seen[p.key] = true
			}
		}
	}
	return out
}

func decodeDescriptor(node *yaml.Node) *models.ClassDescriptor {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var desc models.ClassDescriptor
	if err := node.Decode(&desc); err != nil {
		return nil
	}
	return &desc
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
