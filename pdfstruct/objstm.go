package pdfstruct

import (
	"errors"
	"fmt"
)

// objStm is a decoded object stream with its header parsed.
type objStm struct {
	data  []byte
	slots []objStmSlot
}

// objStmSlot is one (object number, offset) pair from an object stream header.
// The offset is relative to the start of the decoded data.
type objStmSlot struct {
	number int
	offset int
}

// HasObjectStreams returns whether some objects are still packed inside object
// streams that have not been expanded.
func (d *Document) HasObjectStreams() bool {
	return len(d.pending) != 0
}

// ExpandObjectStreams extracts every object that is stored inside an object
// stream into the document's object table, and then removes the object
// streams themselves.  An object that is already in the table is left alone:
// it was written by a later update than the packed copy.
func (d *Document) ExpandObjectStreams() (err error) {
	var containers = make(map[int]objStm)

	for _, pe := range d.pending {
		var stm objStm
		var ok bool

		if stm, ok = containers[pe.stream]; !ok {
			var str Stream
			if str, err = d.GetStream(Reference{Number: pe.stream}); err != nil {
				return fmt.Errorf("reading object stream %d: %w", pe.stream, err)
			}
			if err = str.Decompress(0); err != nil {
				return fmt.Errorf("decompressing object stream %d: %w", pe.stream, err)
			}
			if stm, err = parseObjStm(str); err != nil {
				return fmt.Errorf("object stream %d: %w", pe.stream, err)
			}
			containers[pe.stream] = stm
		}
		if pe.number < 0 {
			for i, slot := range stm.slots {
				if err = d.expandSlot(stm, i, slot.number); err != nil {
					return fmt.Errorf("object stream %d: %w", pe.stream, err)
				}
			}
			continue
		}
		if err = d.expandSlot(stm, pe.index, pe.number); err != nil {
			return fmt.Errorf("object stream %d: %w", pe.stream, err)
		}
	}
	for num := range containers {
		delete(d.objects, Reference{Number: num})
	}
	d.pending = nil
	return nil
}

// expandSlot stores the object at index idx of stm as object number num, unless
// the document already has an object with that number.
func (d *Document) expandSlot(stm objStm, idx, num int) (err error) {
	var ref = Reference{Number: num}
	var obj Object

	if _, ok := d.objects[ref]; ok {
		return nil
	}
	if obj, err = stm.object(idx); err != nil {
		return fmt.Errorf("extracting object %d at index %d: %w", num, idx, err)
	}
	d.objects[ref] = obj
	if num >= d.next {
		d.next = num + 1
	}
	return nil
}

// parseObjStm reads the header of a decoded object stream.
func parseObjStm(s Stream) (stm objStm, err error) {
	var (
		n, first int
		ok       bool
		offset   int
	)
	if ty, _ := s.Dict["Type"].(Name); ty != "ObjStm" {
		return objStm{}, errors.New("stream is not an object stream")
	}
	if n, ok = s.Dict["N"].(int); !ok || n < 0 {
		return objStm{}, errors.New("object stream has no valid /N")
	}
	if first, ok = s.Dict["First"].(int); !ok || first < 0 || first > len(s.Data) {
		return objStm{}, errors.New("object stream has no valid /First")
	}
	stm.data = s.Data
	for i := 0; i < n; i++ {
		var pair [2]int

		for j := range pair {
			var obj Object
			var delta int

			if obj, delta, err = readObjectFrom(s.Data[offset:]); err != nil {
				return objStm{}, fmt.Errorf("reading header entry %d: %w", i, err)
			}
			if v, ok := obj.(int); ok && v >= 0 {
				pair[j] = v
			} else {
				return objStm{}, fmt.Errorf("header entry %d is not a pair of non-negative integers", i)
			}
			offset += delta
		}
		if first+pair[1] >= len(s.Data) {
			return objStm{}, fmt.Errorf("header entry %d points outside the stream", i)
		}
		stm.slots = append(stm.slots, objStmSlot{number: pair[0], offset: first + pair[1]})
	}
	return stm, nil
}

// object parses the object in slot idx.
func (stm objStm) object(idx int) (obj Object, err error) {
	if idx < 0 || idx >= len(stm.slots) {
		return nil, errors.New("index out of range for object stream")
	}
	obj, _, err = readObjectFrom(stm.data[stm.slots[idx].offset:])
	return obj, err
}
