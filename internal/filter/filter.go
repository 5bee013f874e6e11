// Package filter composes BPF filter expressions from typed primitives.
// It builds strings only; validation happens when the expression is
// compiled by the capture device at session start.
package filter

import (
	"fmt"
	"strings"
)

// Builder accumulates BPF primitives and connectives in call order.
// The zero value is ready to use; an empty builder renders to "".
type Builder struct {
	parts []string
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// Host matches the address as source or destination.
func (b *Builder) Host(addr string) *Builder { return b.add("host " + addr) }

// SrcHost matches the address as source.
func (b *Builder) SrcHost(addr string) *Builder { return b.add("src host " + addr) }

// DstHost matches the address as destination.
func (b *Builder) DstHost(addr string) *Builder { return b.add("dst host " + addr) }

// Net matches a CIDR network as source or destination.
func (b *Builder) Net(cidr string) *Builder { return b.add("net " + cidr) }

// Port matches the port as source or destination.
func (b *Builder) Port(port uint16) *Builder {
	return b.add(fmt.Sprintf("port %d", port))
}

// SrcPort matches the source port.
func (b *Builder) SrcPort(port uint16) *Builder {
	return b.add(fmt.Sprintf("src port %d", port))
}

// DstPort matches the destination port.
func (b *Builder) DstPort(port uint16) *Builder {
	return b.add(fmt.Sprintf("dst port %d", port))
}

// PortRange matches any port in [from, to].
func (b *Builder) PortRange(from, to uint16) *Builder {
	return b.add(fmt.Sprintf("portrange %d-%d", from, to))
}

// Proto matches a protocol keyword (tcp, udp, icmp, ip, ip6, arp, ...).
func (b *Builder) Proto(proto string) *Builder { return b.add(proto) }

// VLAN matches VLAN-tagged frames with the given ID.
func (b *Builder) VLAN(id uint16) *Builder {
	return b.add(fmt.Sprintf("vlan %d", id))
}

// And inserts the "and" connective.
func (b *Builder) And() *Builder { return b.add("and") }

// Or inserts the "or" connective.
func (b *Builder) Or() *Builder { return b.add("or") }

// Not inserts the "not" operator; it applies to the next primitive or
// group.
func (b *Builder) Not() *Builder { return b.add("not") }

// Group appends a parenthesized sub-expression. Empty groups are
// skipped.
func (b *Builder) Group(sub *Builder) *Builder {
	expr := sub.String()
	if expr == "" {
		return b
	}
	return b.add("(" + expr + ")")
}

// Raw appends a literal fragment verbatim.
func (b *Builder) Raw(expr string) *Builder { return b.add(expr) }

// String renders the accumulated expression.
func (b *Builder) String() string {
	return strings.Join(b.parts, " ")
}

func (b *Builder) add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}
