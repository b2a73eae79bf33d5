// Package object implements the polymorphic value header described in
// spec.md §3.1/§4.11: a small envelope carrying a type tag, an
// encoding tag, a packed LRU/LFU clock field, a refcount, and an
// opaque body whose shape is fixed by (type, encoding).
//
// This mirrors mebo's NumericBlob/TextBlob split (blob/numeric_blob.go,
// blob/text_blob.go) — a typed envelope that dispatches on a kind tag
// rather than a Go interface with per-type methods — generalized from
// mebo's two container kinds to spec.md's seven.
package object

import "fmt"

// Type is the value's container kind, spec.md §3.1.
type Type uint8

const (
	TypeString Type = iota
	TypeList
	TypeSet
	TypeHash
	TypeZSet
	TypeStream
	TypeModule
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	case TypeZSet:
		return "zset"
	case TypeStream:
		return "stream"
	case TypeModule:
		return "module"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Encoding is the concrete representation backing a value's ptr field,
// spec.md §4.11.1. Encoding tags are shared across types; which ones
// are legal for a given Type is enforced by legalEncodings.
type Encoding uint8

const (
	EncodingRaw Encoding = iota
	EncodingEmbstr
	EncodingInt
	EncodingQuicklist
	EncodingZiplist
	EncodingLinkedList
	EncodingIntset
	EncodingHashtable
	EncodingSkiplist
	EncodingStreamRadix
)

func (e Encoding) String() string {
	switch e {
	case EncodingRaw:
		return "raw"
	case EncodingEmbstr:
		return "embstr"
	case EncodingInt:
		return "int"
	case EncodingQuicklist:
		return "quicklist"
	case EncodingZiplist:
		return "ziplist"
	case EncodingLinkedList:
		return "linkedlist"
	case EncodingIntset:
		return "intset"
	case EncodingHashtable:
		return "hashtable"
	case EncodingSkiplist:
		return "skiplist"
	case EncodingStreamRadix:
		return "stream-radix"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

var legalEncodings = map[Type]map[Encoding]bool{
	TypeString: {EncodingRaw: true, EncodingEmbstr: true, EncodingInt: true},
	TypeList:   {EncodingQuicklist: true, EncodingZiplist: true, EncodingLinkedList: true},
	TypeSet:    {EncodingIntset: true, EncodingHashtable: true},
	TypeHash:   {EncodingZiplist: true, EncodingHashtable: true},
	TypeZSet:   {EncodingZiplist: true, EncodingSkiplist: true},
	TypeStream: {EncodingStreamRadix: true},
	TypeModule: {},
}

// Legal reports whether encoding is a valid representation for typ,
// the spec.md §3.1 invariant "type determines the set of legal
// encoding values".
func Legal(typ Type, encoding Encoding) bool {
	return legalEncodings[typ][encoding]
}
