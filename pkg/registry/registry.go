// Package registry loads and indexes the SKU mapping definition: the master
// SKU universe, the ordered channel list, and each channel's raw-code to
// master-SKU mapping. The registry is built once per run, is read-only after
// construction, and is passed explicitly to every component that needs it.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/reports"
)

// Registry is the single source of truth for which rows exist in every
// output and how raw channel identifiers map onto master SKUs.
type Registry struct {
	masters   []reports.MasterSKU
	masterSet map[reports.MasterSKU]struct{}
	channels  []channelDef
	byID      map[reports.ChannelID]int
}

// channelDef is the indexed form of one channel entry.
type channelDef struct {
	channel  reports.Channel
	report   reports.Type
	identity bool
	aliases  map[string]reports.MasterSKU
	bundles  map[string]struct{}
}

// file is the YAML shape of the mapping definition.
type file struct {
	MasterSKUs []string      `yaml:"master_skus"`
	Channels   []channelFile `yaml:"channels"`
}

// channelFile is the YAML shape of one channel entry.
type channelFile struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Report   string            `yaml:"report"`
	Metrics  []string          `yaml:"metrics"`
	Identity bool              `yaml:"identity"`
	Aliases  map[string]string `yaml:"aliases"`
	Bundles  []string          `yaml:"bundles"`
}

// Load reads and indexes a mapping definition from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapConfig(path, err)
	}
	return reg, nil
}

// Parse indexes a mapping definition from YAML bytes. Inconsistent mappings
// are a configuration error surfaced here, never resolved silently at run
// time.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", "sku mapping", err)
	}

	if len(f.MasterSKUs) == 0 {
		return nil, errors.NewConfigError("registry", "master_skus must not be empty", nil)
	}
	if len(f.Channels) == 0 {
		return nil, errors.NewConfigError("registry", "channels must not be empty", nil)
	}

	reg := &Registry{
		masterSet: make(map[reports.MasterSKU]struct{}, len(f.MasterSKUs)),
		byID:      make(map[reports.ChannelID]int, len(f.Channels)),
	}

	for _, raw := range f.MasterSKUs {
		sku := reports.MasterSKU(strings.TrimSpace(raw))
		if sku == "" {
			return nil, errors.NewConfigError("registry", "empty master SKU", nil)
		}
		if sku == reports.BundleSKU {
			return nil, errors.NewConfigError("registry", fmt.Sprintf("%q is reserved and cannot be a master SKU", reports.BundleSKU), nil)
		}
		if _, dup := reg.masterSet[sku]; dup {
			return nil, errors.NewConfigError("registry", fmt.Sprintf("duplicate master SKU %q", sku), nil)
		}
		reg.masterSet[sku] = struct{}{}
		reg.masters = append(reg.masters, sku)
	}

	for _, cf := range f.Channels {
		def, err := reg.indexChannel(cf)
		if err != nil {
			return nil, err
		}
		if _, dup := reg.byID[def.channel.ID]; dup {
			return nil, errors.NewConfigError("registry", fmt.Sprintf("channel %q declared twice", def.channel.ID), nil)
		}
		reg.byID[def.channel.ID] = len(reg.channels)
		reg.channels = append(reg.channels, def)
	}

	return reg, nil
}

// indexChannel validates and indexes one channel entry.
func (r *Registry) indexChannel(cf channelFile) (channelDef, error) {
	id := reports.ChannelID(strings.TrimSpace(cf.ID))
	if id == "" {
		return channelDef{}, errors.NewConfigError("registry", "channel with empty id", nil)
	}

	reportType := reports.Type(cf.Report)
	if !reportType.Valid() {
		return channelDef{}, errors.NewConfigError("registry",
			fmt.Sprintf("channel %q has unknown report type %q", id, cf.Report), nil)
	}

	if len(cf.Metrics) == 0 {
		return channelDef{}, errors.NewConfigError("registry",
			fmt.Sprintf("channel %q declares no metrics", id), nil)
	}
	allowed := make(map[reports.Metric]struct{})
	for _, m := range reportType.Metrics() {
		allowed[m] = struct{}{}
	}
	metrics := make([]reports.Metric, 0, len(cf.Metrics))
	for _, raw := range cf.Metrics {
		m := reports.Metric(raw)
		if _, ok := allowed[m]; !ok {
			return channelDef{}, errors.NewConfigError("registry",
				fmt.Sprintf("channel %q declares metric %q not tracked by %s reports", id, raw, reportType), nil)
		}
		metrics = append(metrics, m)
	}

	def := channelDef{
		channel: reports.Channel{
			ID:      id,
			Name:    cf.Name,
			Metrics: metrics,
		},
		report:   reportType,
		identity: cf.Identity,
		aliases:  make(map[string]reports.MasterSKU, len(cf.Aliases)),
		bundles:  make(map[string]struct{}, len(cf.Bundles)),
	}
	if def.channel.Name == "" {
		def.channel.Name = string(id)
	}

	for raw, target := range cf.Aliases {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return channelDef{}, errors.NewConfigError("registry",
				fmt.Sprintf("channel %q has an alias with an empty raw code", id), nil)
		}
		sku := reports.MasterSKU(strings.TrimSpace(target))
		if _, ok := r.masterSet[sku]; !ok {
			return channelDef{}, errors.NewConfigError("registry",
				fmt.Sprintf("channel %q alias %q targets unknown master SKU %q", id, raw, sku), nil)
		}
		// An alias that shadows a master SKU under identity resolution is a
		// conflicting mapping unless it points at that same SKU.
		if def.identity {
			if _, isMaster := r.masterSet[reports.MasterSKU(raw)]; isMaster && reports.MasterSKU(raw) != sku {
				return channelDef{}, errors.NewConfigError("registry",
					fmt.Sprintf("channel %q alias %q conflicts with identity mapping", id, raw), nil)
			}
		}
		def.aliases[raw] = sku
	}

	for _, raw := range cf.Bundles {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, ok := def.aliases[raw]; ok {
			return channelDef{}, errors.NewConfigError("registry",
				fmt.Sprintf("channel %q bundle code %q already aliased to a master SKU", id, raw), nil)
		}
		def.bundles[raw] = struct{}{}
	}

	return def, nil
}

// Resolve maps a raw channel identifier onto a master SKU. Bundle codes
// resolve to the reserved bundle pseudo-SKU. A raw identifier with no entry
// for its channel returns an UnmappedIdentifierError; the caller's policy
// decides whether that is fatal.
func (r *Registry) Resolve(channel reports.ChannelID, raw string) (reports.MasterSKU, error) {
	idx, ok := r.byID[channel]
	if !ok {
		return "", errors.NewConfigError("registry", fmt.Sprintf("unknown channel %q", channel), nil)
	}
	def := &r.channels[idx]

	raw = strings.TrimSpace(raw)
	if sku, ok := def.aliases[raw]; ok {
		return sku, nil
	}
	if _, ok := def.bundles[raw]; ok {
		return reports.BundleSKU, nil
	}
	if def.identity {
		if sku := reports.MasterSKU(raw); r.Contains(sku) {
			return sku, nil
		}
	}
	return "", errors.NewUnmappedIdentifierError(string(channel), raw)
}

// MasterSKUs returns the full master-SKU universe in declared order.
func (r *Registry) MasterSKUs() []reports.MasterSKU {
	out := make([]reports.MasterSKU, len(r.masters))
	copy(out, r.masters)
	return out
}

// Contains reports whether sku belongs to the master-SKU universe.
func (r *Registry) Contains(sku reports.MasterSKU) bool {
	_, ok := r.masterSet[sku]
	return ok
}

// Channels returns the channel descriptors for a report type in declared
// display order.
func (r *Registry) Channels(t reports.Type) []reports.Channel {
	var out []reports.Channel
	for i := range r.channels {
		if r.channels[i].report == t {
			out = append(out, r.channels[i].channel)
		}
	}
	return out
}

// Channel returns the descriptor for one channel.
func (r *Registry) Channel(id reports.ChannelID) (reports.Channel, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return reports.Channel{}, false
	}
	return r.channels[idx].channel, true
}

// Report returns the report type a channel contributes to.
func (r *Registry) Report(id reports.ChannelID) (reports.Type, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.channels[idx].report, true
}
