package core

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// CheckStatus classifies a staged mod directory layout.
type CheckStatus int

const (
	// StatusInvalid: the layout cannot be repaired automatically.
	StatusInvalid CheckStatus = iota
	// StatusValid: every top-level entry is already where the game expects it.
	StatusValid
	// StatusFixable: FixModLayout can rearrange the tree into a valid one.
	StatusFixable
)

func (s CheckStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusFixable:
		return "fixable"
	default:
		return "invalid"
	}
}

// Mod layout rules. Top-level entries matching validNames are already
// correct. moveRules relocates known payload folders to their install
// location. Any other directory is unfolded into its parent and any other
// file is dropped.
var validNames = []string{"x64", "mods", "dxgi.dll", "dinput8.dll", "launcher.dll"}

type moveRule struct {
	name   string
	target string
}

var moveRules = []moveRule{
	{"scripts", "x64"},
	{"modules", "x64"},
	{"gamedata", "mods/deploy/ff12data"},
	{"jsondata", "mods/deploy/ff12data"},
	{"prefetchdata", "mods/deploy/ff12data"},
	{"ps2data", "mods/deploy/ff12data"},
	{"ff12data", "mods/deploy"},
}

// FileNode is an in-memory view of a directory tree.
type FileNode struct {
	Name     string
	Dir      bool
	Children []*FileNode
}

// ModAction is one step of a layout fix, with slash-separated paths
// relative to the mod root.
type ModAction struct {
	Kind string // "move" or "delete"
	From string
	To   string
}

func isValidName(name string) bool {
	for _, v := range validNames {
		if name == v {
			return true
		}
	}
	return false
}

func moveTargetFor(name string) (string, bool) {
	for _, r := range moveRules {
		if name == r.name {
			return r.target, true
		}
	}
	return "", false
}

// CheckModLayout classifies a staged mod tree without modifying it.
func CheckModLayout(root *FileNode) CheckStatus {
	status := StatusValid

	for _, entry := range root.Children {
		name := strings.ToLower(entry.Name)

		if isValidName(name) {
			continue
		}
		if _, ok := moveTargetFor(name); ok {
			status = StatusFixable
			continue
		}
		if entry.Dir {
			// An unknown directory gets unfolded, but only if its own
			// contents check out once lifted.
			status = StatusFixable
			if sub := CheckModLayout(entry); sub == StatusInvalid {
				return StatusInvalid
			}
			continue
		}
		// Stray files are deleted during fixing.
		status = StatusFixable
	}

	return status
}

// FixModLayout rearranges the tree into a valid layout and returns the
// actions a caller must mirror on disk, in order. Unknown directories are
// unfolded one level at a time until every top-level entry is either valid
// or relocated.
func FixModLayout(root *FileNode) []ModAction {
	var actions []ModAction

	for changed := true; changed; {
		changed = false

		for _, entry := range append([]*FileNode(nil), root.Children...) {
			name := strings.ToLower(entry.Name)

			if isValidName(name) {
				continue
			}

			if target, ok := moveTargetFor(name); ok {
				actions = append(actions, ModAction{
					Kind: "move",
					From: entry.Name,
					To:   path.Join(target, entry.Name),
				})
				root.detach(entry)
				ensureDir(root, target).attach(entry)
				changed = true
				continue
			}

			if entry.Dir {
				for _, child := range append([]*FileNode(nil), entry.Children...) {
					actions = append(actions, ModAction{
						Kind: "move",
						From: path.Join(entry.Name, child.Name),
						To:   child.Name,
					})
					entry.detach(child)
					root.attach(child)
				}
				actions = append(actions, ModAction{Kind: "delete", From: entry.Name})
				root.detach(entry)
				changed = true
				continue
			}

			actions = append(actions, ModAction{Kind: "delete", From: entry.Name})
			root.detach(entry)
			changed = true
		}
	}

	return actions
}

func (n *FileNode) detach(child *FileNode) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
	}
}

// attach adds child under n, merging directory contents when a directory of
// the same name already exists and replacing a file of the same name.
func (n *FileNode) attach(child *FileNode) {
	for _, existing := range n.Children {
		if !strings.EqualFold(existing.Name, child.Name) {
			continue
		}
		if existing.Dir && child.Dir {
			for _, gc := range child.Children {
				existing.attach(gc)
			}
			return
		}
		n.detach(existing)
		break
	}
	n.Children = append(n.Children, child)
}

// ensureDir returns the directory node at the slash path p under root,
// creating intermediate directories as needed.
func ensureDir(root *FileNode, p string) *FileNode {
	node := root
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		var next *FileNode
		for _, c := range node.Children {
			if strings.EqualFold(c.Name, part) && c.Dir {
				next = c
				break
			}
		}
		if next == nil {
			next = &FileNode{Name: part, Dir: true}
			node.Children = append(node.Children, next)
		}
		node = next
	}
	return node
}

// ScanModTree builds a FileNode view of an on-disk directory.
func ScanModTree(dir string) (*FileNode, error) {
	root := &FileNode{Name: filepath.Base(dir), Dir: true}
	if err := scanInto(dir, root); err != nil {
		return nil, err
	}
	return root, nil
}

func scanInto(dir string, node *FileNode) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		child := &FileNode{Name: e.Name(), Dir: e.IsDir()}
		if e.IsDir() {
			if err := scanInto(filepath.Join(dir, e.Name()), child); err != nil {
				return err
			}
		}
		node.Children = append(node.Children, child)
	}
	return nil
}
