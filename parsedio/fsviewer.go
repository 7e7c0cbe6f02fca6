// SPDX-License-Identifier: GPL-3.0-or-later

package parsedio

import "strings"

// fsNode is one file id's known structure, incrementally built from
// [wire.FsFileEvent] (parent/type) and [wire.FsFileName] (name) events
// (spec §4.9: "an incrementally built tree keyed by file id, with edges
// derived from FsFileName events").
type fsNode struct {
	name   string
	parent uint64
}

// FilesystemViewer answers parent/basename/path/extension queries over
// the namespace tree observed in one partition's event stream.
type FilesystemViewer struct {
	nodes map[uint64]*fsNode
}

func newFilesystemViewer() *FilesystemViewer {
	return &FilesystemViewer{nodes: make(map[uint64]*fsNode)}
}

func (v *FilesystemViewer) nodeFor(id uint64) *fsNode {
	n, ok := v.nodes[id]
	if !ok {
		n = &fsNode{}
		v.nodes[id] = n
	}
	return n
}

func (v *FilesystemViewer) observeName(fileID uint64, name string) {
	v.nodeFor(fileID).name = name
}

func (v *FilesystemViewer) observeEvent(fileID, parentFileID uint64) {
	v.nodeFor(fileID).parent = parentFileID
}

// Parent returns id's parent file id, or 0 if id is unknown or has no
// recorded parent (the root).
func (v *FilesystemViewer) Parent(id uint64) uint64 {
	n, ok := v.nodes[id]
	if !ok {
		return 0
	}
	return n.parent
}

// BaseName returns id's observed file name, or "" if unknown.
func (v *FilesystemViewer) BaseName(id uint64) string {
	n, ok := v.nodes[id]
	if !ok {
		return ""
	}
	return n.name
}

// Extension returns id's file extension (the substring after the final
// '.' in its base name), or "" if there is none.
func (v *FilesystemViewer) Extension(id uint64) string {
	name := v.BaseName(id)
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

// Path returns id's full path, root-first, '/'-joined from the chain of
// observed parents.
func (v *FilesystemViewer) Path(id uint64) string {
	var parts []string
	for cur, depth := id, 0; cur != 0 && depth < len(v.nodes)+1; depth++ {
		n, ok := v.nodes[cur]
		if !ok {
			break
		}
		parts = append([]string{n.name}, parts...)
		cur = n.parent
	}
	return strings.Join(parts, "/")
}
