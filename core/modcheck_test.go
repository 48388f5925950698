package core

import (
	"path"
	"testing"
)

func dir(name string, children ...*FileNode) *FileNode {
	return &FileNode{Name: name, Dir: true, Children: children}
}

func file(name string) *FileNode {
	return &FileNode{Name: name}
}

// find walks a slash path through the tree.
func find(root *FileNode, p string) *FileNode {
	node := root
	for _, part := range splitPath(p) {
		var next *FileNode
		for _, c := range node.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

func splitPath(p string) []string {
	var out []string
	for p != "" {
		d, f := path.Split(p)
		out = append([]string{f}, out...)
		p = path.Clean(d)
		if p == "." || p == "/" {
			break
		}
	}
	return out
}

func TestCheckModLayout(t *testing.T) {
	tests := []struct {
		name string
		root *FileNode
		want CheckStatus
	}{
		{
			name: "already valid",
			root: dir("mod", dir("x64", file("FFXII_TZA.exe")), dir("mods"), file("dxgi.dll")),
			want: StatusValid,
		},
		{
			name: "empty tree is valid",
			root: dir("mod"),
			want: StatusValid,
		},
		{
			name: "movable payload folder",
			root: dir("mod", dir("gamedata", file("a.bin"))),
			want: StatusFixable,
		},
		{
			name: "wrapper directory needs unfolding",
			root: dir("mod", dir("MyMod-1.0", dir("x64", file("script.lua")))),
			want: StatusFixable,
		},
		{
			name: "stray file is fixable by deletion",
			root: dir("mod", dir("x64"), file("readme.txt")),
			want: StatusFixable,
		},
		{
			name: "case-insensitive valid names",
			root: dir("mod", dir("X64"), file("DXGI.DLL")),
			want: StatusValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckModLayout(tt.root); got != tt.want {
				t.Fatalf("CheckModLayout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFixModLayout_MovesPayloads(t *testing.T) {
	root := dir("mod",
		dir("scripts", file("tweak.lua")),
		dir("gamedata", file("a.bin")),
		dir("ff12data", file("b.bin")),
	)

	actions := FixModLayout(root)
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %+v", actions)
	}

	if find(root, "x64/scripts/tweak.lua") == nil {
		t.Fatalf("scripts not moved under x64: %+v", root)
	}
	if find(root, "mods/deploy/ff12data/gamedata/a.bin") == nil {
		t.Fatalf("gamedata not moved under mods/deploy/ff12data")
	}
	if find(root, "mods/deploy/ff12data/b.bin") == nil {
		t.Fatalf("ff12data not moved under mods/deploy")
	}
	if CheckModLayout(root) != StatusValid {
		t.Fatalf("tree should be valid after fixing")
	}
}

func TestFixModLayout_UnfoldsWrapper(t *testing.T) {
	root := dir("mod",
		dir("MyMod-v2", dir("x64", file("script.lua")), file("readme.txt")),
	)

	actions := FixModLayout(root)

	if find(root, "x64/script.lua") == nil {
		t.Fatalf("wrapped x64 not lifted to root: %+v", root)
	}
	if find(root, "readme.txt") != nil {
		t.Fatalf("stray file should be deleted after the lift")
	}
	if find(root, "MyMod-v2") != nil {
		t.Fatalf("wrapper directory should be gone")
	}

	var deletes int
	for _, a := range actions {
		if a.Kind == "delete" {
			deletes++
		}
	}
	// One delete for the wrapper dir, one for readme.txt.
	if deletes != 2 {
		t.Fatalf("expected 2 deletes, got %+v", actions)
	}
	if CheckModLayout(root) != StatusValid {
		t.Fatalf("tree should be valid after fixing")
	}
}

func TestFixModLayout_MergesIntoExistingDirs(t *testing.T) {
	root := dir("mod",
		dir("x64", file("existing.lua")),
		dir("scripts", file("new.lua")),
	)

	FixModLayout(root)

	if find(root, "x64/existing.lua") == nil || find(root, "x64/scripts/new.lua") == nil {
		t.Fatalf("move should merge into the existing x64 dir: %+v", root)
	}
}

func TestFixModLayout_ValidTreeUntouched(t *testing.T) {
	root := dir("mod", dir("x64"), dir("mods"), file("launcher.dll"))
	if actions := FixModLayout(root); len(actions) != 0 {
		t.Fatalf("valid tree should produce no actions, got %+v", actions)
	}
}
