package schema

import (
	"strings"

	"zombiezen.com/go/capnproto2"
)

// descriptorSize is the capnp struct layout backing a marshaled Layout:
// one 8-byte data word holding total_size and alignment (two u32s) and
// one pointer word hosting the text blob below.
var descriptorSize = capnp.ObjectSize{DataSize: 8, PointerCount: 1}

// MarshalLayout encodes a Layout's static metadata — not a record's
// live data — as a Cap'n Proto message, for interchange with the schema
// descriptions the surrounding codegen toolchain emits. It stays at the
// low-level Struct API rather than generated accessors, the same level
// nmxmxh-inos_v1/kernel/core/mesh/coordinator.go's packResource and
// unpackResource fall back to when no generated type fits the data
// being shipped.
func MarshalLayout(l *Layout) ([]byte, error) {
	msg, seg, err := capnp.NewMessage(capnp.SingleSegment(nil))
	if err != nil {
		return nil, err
	}
	st, err := capnp.NewRootStruct(seg, descriptorSize)
	if err != nil {
		return nil, err
	}

	st.SetUint32(0, l.TotalSize)
	st.SetUint32(4, l.Alignment)

	names := make([]string, len(l.Properties))
	for i, p := range l.Properties {
		names[i] = p.PropertyKey
	}
	blob := l.Name + "\x00" + strings.Join(names, "\n")
	if err := st.SetText(0, blob); err != nil {
		return nil, err
	}

	return msg.Marshal()
}

// UnmarshalLayoutNames decodes the name, total size, alignment, and
// ordered property names a prior MarshalLayout call encoded, without
// requiring the caller to already know the full Layout.
func UnmarshalLayoutNames(data []byte) (name string, totalSize, alignment uint32, propertyNames []string, err error) {
	msg, err := capnp.Unmarshal(data)
	if err != nil {
		return "", 0, 0, nil, err
	}
	ptr, err := msg.RootPtr()
	if err != nil {
		return "", 0, 0, nil, err
	}
	st := ptr.Struct()

	totalSize = st.Uint32(0)
	alignment = st.Uint32(4)

	blob, err := st.Text(0)
	if err != nil {
		return "", 0, 0, nil, err
	}
	parts := strings.SplitN(blob, "\x00", 2)
	name = parts[0]
	if len(parts) > 1 && parts[1] != "" {
		propertyNames = strings.Split(parts[1], "\n")
	}
	return name, totalSize, alignment, propertyNames, nil
}
