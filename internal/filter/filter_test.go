package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderPrimitives(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"empty", New().String(), ""},
		{"host", New().Host("192.168.1.10").String(), "host 192.168.1.10"},
		{"src host", New().SrcHost("10.0.0.1").String(), "src host 10.0.0.1"},
		{"dst host", New().DstHost("10.0.0.2").String(), "dst host 10.0.0.2"},
		{"net", New().Net("10.0.0.0/8").String(), "net 10.0.0.0/8"},
		{"port", New().Port(443).String(), "port 443"},
		{"src port", New().SrcPort(5060).String(), "src port 5060"},
		{"dst port", New().DstPort(53).String(), "dst port 53"},
		{"portrange", New().PortRange(8000, 8080).String(), "portrange 8000-8080"},
		{"proto", New().Proto("udp").String(), "udp"},
		{"vlan", New().VLAN(100).String(), "vlan 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestBuilderComposition(t *testing.T) {
	expr := New().Proto("tcp").And().Port(443).String()
	assert.Equal(t, "tcp and port 443", expr)

	expr = New().Host("10.0.0.1").Or().Host("10.0.0.2").String()
	assert.Equal(t, "host 10.0.0.1 or host 10.0.0.2", expr)

	expr = New().Not().Proto("arp").String()
	assert.Equal(t, "not arp", expr)
}

func TestBuilderGroups(t *testing.T) {
	sub := New().Port(80).Or().Port(443)
	expr := New().Proto("tcp").And().Group(sub).String()
	assert.Equal(t, "tcp and (port 80 or port 443)", expr)

	// Empty groups disappear entirely.
	expr = New().Proto("udp").Group(New()).String()
	assert.Equal(t, "udp", expr)
}

func TestBuilderRaw(t *testing.T) {
	expr := New().Raw("ip[8] < 64").And().Proto("icmp").String()
	assert.Equal(t, "ip[8] < 64 and icmp", expr)
}
