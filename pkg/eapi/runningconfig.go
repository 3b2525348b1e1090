/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package eapi

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	vlanHeaderRE      = regexp.MustCompile(`^vlan (\d+)$`)
	interfaceHeaderRE = regexp.MustCompile(`^interface (\S+)$`)
	channelGroupRE    = regexp.MustCompile(`^channel-group (\d+) mode (\S+)$`)
	portChannelIDRE   = regexp.MustCompile(`(?i)^port-channel(\d+)$`)
)

// configBlock is a top-level running-config line and its indented children.
type configBlock struct {
	header string
	lines  []string
}

// value returns the remainder of the first child line starting with prefix.
func (b configBlock) value(prefix string) (string, bool) {
	for _, line := range b.lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}

	return "", false
}

func (b configBlock) values(prefix string) []interface{} {
	out := make([]interface{}, 0)

	for _, line := range b.lines {
		if strings.HasPrefix(line, prefix) {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
		}
	}

	return out
}

func (b configBlock) has(line string) bool {
	for _, l := range b.lines {
		if l == line {
			return true
		}
	}

	return false
}

func (b configBlock) intValue(prefix string, fallback int) int {
	v, ok := b.value(prefix)
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

// parseBlocks splits running-config text into top-level blocks. Child lines
// are stored without their indentation; "!" comment lines are dropped.
func parseBlocks(config string) []configBlock {
	var blocks []configBlock

	for _, raw := range strings.Split(config, "\n") {
		line := strings.TrimRight(raw, " \r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "!") {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			blocks = append(blocks, configBlock{header: line})
			continue
		}

		if len(blocks) > 0 {
			last := &blocks[len(blocks)-1]
			last.lines = append(last.lines, trimmed)
		}
	}

	return blocks
}

// ParseVlans builds the VLAN resource from running-config text.
func ParseVlans(config string) Resource {
	vlans := make(Resource)

	for _, b := range parseBlocks(config) {
		m := vlanHeaderRE.FindStringSubmatch(b.header)
		if m == nil {
			continue
		}

		vid := m[1]

		name, ok := b.value("name ")
		if !ok {
			n, _ := strconv.Atoi(vid)
			name = fmt.Sprintf("VLAN%04d", n)
		}

		state, ok := b.value("state ")
		if !ok {
			state = "active"
		}

		vlans[vid] = map[string]interface{}{
			"vlan_id":      vid,
			"name":         name,
			"state":        state,
			"trunk_groups": b.values("trunk group "),
		}
	}

	return vlans
}

// ParseInterfaces builds the interface resource from running-config text.
// Ethernet, Port-Channel and Vxlan interfaces carry type-specific attributes.
func ParseInterfaces(config string) Resource {
	blocks := parseBlocks(config)
	members := channelMembers(blocks)
	interfaces := make(Resource)

	for _, b := range blocks {
		m := interfaceHeaderRE.FindStringSubmatch(b.header)
		if m == nil {
			continue
		}

		name := m[1]

		attrs := map[string]interface{}{
			"name":        name,
			"type":        "generic",
			"shutdown":    !b.has("no shutdown"),
			"description": nil,
		}

		if desc, ok := b.value("description "); ok {
			attrs["description"] = desc
		}

		switch strings.ToLower(name[:min(2, len(name))]) {
		case "et":
			ethernetAttributes(b, attrs)
		case "po":
			portChannelAttributes(b, name, members, attrs)
		case "vx":
			vxlanAttributes(b, attrs)
		}

		interfaces[name] = attrs
	}

	return interfaces
}

func ethernetAttributes(b configBlock, attrs map[string]interface{}) {
	attrs["type"] = "ethernet"
	attrs["sflow"] = !b.has("no sflow")
	attrs["flowcontrol_send"] = valueOr(b, "flowcontrol send ", "off")
	attrs["flowcontrol_receive"] = valueOr(b, "flowcontrol receive ", "off")
}

func portChannelAttributes(b configBlock, name string, members map[string][]channelMember, attrs map[string]interface{}) {
	attrs["type"] = "portchannel"
	attrs["minimum_links"] = b.intValue("port-channel min-links ", 0)
	attrs["lacp_timeout"] = b.intValue("port-channel lacp fallback timeout ", 90)

	fallback := "disabled"
	if v, ok := b.value("port-channel lacp fallback "); ok && (v == "static" || v == "individual") {
		fallback = v
	}

	attrs["lacp_fallback"] = fallback

	names := make([]interface{}, 0)
	mode := "on"

	if m := portChannelIDRE.FindStringSubmatch(name); m != nil {
		for i, member := range members[m[1]] {
			if i == 0 {
				mode = member.mode
			}

			names = append(names, member.name)
		}
	}

	attrs["members"] = names
	attrs["lacp_mode"] = mode
}

func vxlanAttributes(b configBlock, attrs map[string]interface{}) {
	attrs["type"] = "vxlan"
	attrs["source_interface"] = valueOr(b, "vxlan source-interface ", "")
	attrs["multicast_group"] = valueOr(b, "vxlan multicast-group ", "")
	attrs["udp_port"] = b.intValue("vxlan udp-port ", 4789)
	attrs["flood_list"] = floodList(b)
}

func floodList(b configBlock) []interface{} {
	out := make([]interface{}, 0)

	v, ok := b.value("vxlan flood vtep ")
	if !ok {
		return out
	}

	for _, vtep := range strings.Fields(v) {
		out = append(out, vtep)
	}

	return out
}

func valueOr(b configBlock, prefix, fallback string) string {
	if v, ok := b.value(prefix); ok {
		return v
	}

	return fallback
}

type channelMember struct {
	name string
	mode string
}

// channelMembers maps port-channel ids to their member interfaces, sorted by name.
func channelMembers(blocks []configBlock) map[string][]channelMember {
	members := make(map[string][]channelMember)

	for _, b := range blocks {
		m := interfaceHeaderRE.FindStringSubmatch(b.header)
		if m == nil {
			continue
		}

		for _, line := range b.lines {
			if cg := channelGroupRE.FindStringSubmatch(line); cg != nil {
				members[cg[1]] = append(members[cg[1]], channelMember{name: m[1], mode: cg[2]})
			}
		}
	}

	for id := range members {
		sort.Slice(members[id], func(i, j int) bool { return members[id][i].name < members[id][j].name })
	}

	return members
}
