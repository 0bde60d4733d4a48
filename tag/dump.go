package tag

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxDumpBytes bounds how much of a ByteArray is printed.
const maxDumpBytes = 32

// Dump writes an indented, human-readable rendering of t to w.
//
//	Compound "root" id=1 type="game.Player" (2)
//	  String "Name" = "ada"
//	  List "Scores" <Double> (3)
//	    Double = 1
//	    ...
func Dump(w io.Writer, t Tag) error {
	bw := bufio.NewWriter(w)
	dump(bw, t, 0)
	return bw.Flush()
}

// Sprint returns the Dump rendering of t as a string.
func Sprint(t Tag) string {
	var sb strings.Builder
	_ = Dump(&sb, t)
	return sb.String()
}

func dump(w *bufio.Writer, t Tag, depth int) {
	w.WriteString(strings.Repeat("  ", depth))
	w.WriteString(t.Kind().String())
	if t.Name() != "" {
		w.WriteString(" ")
		w.WriteString(strconv.Quote(t.Name()))
	}

	switch v := t.(type) {
	case *Null:
		w.WriteString("\n")
	case *Byte:
		fmt.Fprintf(w, " = %d\n", v.Value)
	case *Short:
		fmt.Fprintf(w, " = %d\n", v.Value)
	case *Int:
		fmt.Fprintf(w, " = %d\n", v.Value)
	case *Long:
		fmt.Fprintf(w, " = %d\n", v.Value)
	case *Float:
		fmt.Fprintf(w, " = %s\n", strconv.FormatFloat(float64(v.Value), 'g', -1, 32))
	case *Double:
		fmt.Fprintf(w, " = %s\n", strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *String:
		fmt.Fprintf(w, " = %s\n", strconv.Quote(v.Value))
	case *ByteArray:
		shown := v.Value
		suffix := ""
		if len(shown) > maxDumpBytes {
			shown = shown[:maxDumpBytes]
			suffix = "..."
		}
		fmt.Fprintf(w, " [%d] %s%s\n", len(v.Value), hex.EncodeToString(shown), suffix)
	case *List:
		fmt.Fprintf(w, " <%s> (%d)\n", v.ElemKind, len(v.Items))
		for _, item := range v.Items {
			dump(w, item, depth+1)
		}
	case *Compound:
		if v.SerializedID != 0 {
			fmt.Fprintf(w, " id=%d", v.SerializedID)
		}
		if v.SerializedType != "" {
			fmt.Fprintf(w, " type=%s", strconv.Quote(v.SerializedType))
		}
		fmt.Fprintf(w, " (%d)\n", v.Len())
		for _, child := range v.Tags() {
			dump(w, child, depth+1)
		}
	default:
		fmt.Fprintf(w, " <%T>\n", t)
	}
}

// Walk calls fn for t and every tag below it in tree order. Returning false
// from fn skips the children of that tag.
func Walk(t Tag, fn func(Tag) bool) {
	if !fn(t) {
		return
	}
	switch v := t.(type) {
	case *List:
		for _, item := range v.Items {
			Walk(item, fn)
		}
	case *Compound:
		for _, child := range v.Tags() {
			Walk(child, fn)
		}
	}
}
