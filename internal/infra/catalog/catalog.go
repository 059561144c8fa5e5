// Package catalog holds the purchasable item data and the welcome pack.
// The built-in defaults mirror the server's stock loadout; operators can
// replace them with a TOML file.
package catalog

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/quartermaster-shop/quartermaster/internal/domain"
)

// Catalog is a read-only lookup of purchasable items plus the welcome pack.
type Catalog struct {
	items map[string]domain.Item
	pack  []domain.PackItem
}

// Default returns the built-in weapon shop catalog and welcome pack.
func Default() *Catalog {
	items := []domain.Item{
		{Key: "ak47", Name: "AK-47 Assault Rifle", Price: 1500, SpawnCommand: "#SpawnItem BP_AK47", Description: "High-damage automatic rifle, 7.62x39mm"},
		{Key: "m16", Name: "M16 Assault Rifle", Price: 1800, SpawnCommand: "#SpawnItem BP_M16", Description: "Accurate and stable rifle, 5.56x45mm"},
		{Key: "m82a1", Name: "M82A1 Barrett", Price: 2500, SpawnCommand: "#SpawnItem BP_Weapon_M82A1", Description: ".50 BMG anti-materiel sniper rifle"},
		{Key: "svd", Name: "SVD Dragunov", Price: 2200, SpawnCommand: "#SpawnItem BP_Weapon_SVD", Description: "Marksman rifle, 7.62x54mmR"},
		{Key: "mp5", Name: "MP5 Submachine Gun", Price: 1200, SpawnCommand: "#SpawnItem BP_Weapon_MP5", Description: "9x19mm SMG for mid-range fights"},
		{Key: "desert_eagle", Name: "Desert Eagle", Price: 800, SpawnCommand: "#SpawnItem BP_Weapon_DesertEagle", Description: ".50 AE heavy pistol"},
		{Key: "m9", Name: "TEC01 M9", Price: 600, SpawnCommand: "#SpawnItem BP_Weapon_M9", Description: "Reliable 9x19mm sidearm"},
		{Key: "machete", Name: "Machete", Price: 300, SpawnCommand: "#SpawnItem BP_Machete", Description: "Melee blade, high damage against players"},
		{Key: "crowbar", Name: "Crowbar", Price: 250, SpawnCommand: "#SpawnItem BP_Crowbar", Description: "Blunt weapon with a high knockout chance"},
		{Key: "grenade", Name: "Frag Grenade", Price: 400, SpawnCommand: "#SpawnItem BP_Grenade", Description: "Fragmentation grenade for groups and bases"},
	}
	pack := []domain.PackItem{
		{Name: "Bandage", SpawnCommand: "#SpawnItem BP_Bandage"},
		{Name: "Water Bottle", SpawnCommand: "#SpawnItem BP_WaterBottle"},
		{Name: "Tuna Can", SpawnCommand: "#SpawnItem BP_TunaCan"},
		{Name: "Apple", SpawnCommand: "#SpawnItem BP_Apple"},
		{Name: "Compass", SpawnCommand: "#SpawnItem BP_Compass"},
		{Name: "Flashlight", SpawnCommand: "#SpawnItem BP_Flashlight"},
		{Name: "Matches", SpawnCommand: "#SpawnItem BP_Matches"},
		{Name: "Knife", SpawnCommand: "#SpawnItem BP_Knife"},
	}
	return build(items, pack)
}

// catalogFile is the TOML layout of an operator-supplied catalog.
type catalogFile struct {
	Items       []domain.Item     `toml:"items"`
	WelcomePack []domain.PackItem `toml:"welcome_pack"`
}

// LoadFile reads a catalog TOML file. Items replace the defaults entirely;
// an empty welcome_pack section keeps the default pack.
func LoadFile(path string) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog %s defines no items", path)
	}
	for _, it := range file.Items {
		if it.Key == "" || it.SpawnCommand == "" {
			return nil, fmt.Errorf("catalog %s: item %q missing key or spawn_command", path, it.Name)
		}
		if it.Price <= 0 {
			return nil, fmt.Errorf("catalog %s: item %q has non-positive price %d", path, it.Key, it.Price)
		}
	}
	pack := file.WelcomePack
	if len(pack) == 0 {
		pack = Default().WelcomePack()
	}
	return build(file.Items, pack), nil
}

func build(items []domain.Item, pack []domain.PackItem) *Catalog {
	m := make(map[string]domain.Item, len(items))
	for _, it := range items {
		m[it.Key] = it
	}
	return &Catalog{items: m, pack: pack}
}

// Lookup returns the item for key, if present.
func (c *Catalog) Lookup(key string) (domain.Item, bool) {
	it, ok := c.items[key]
	return it, ok
}

// Items returns all items sorted by key.
func (c *Catalog) Items() []domain.Item {
	out := make([]domain.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WelcomePack returns the one-time grant item sequence in delivery order.
func (c *Catalog) WelcomePack() []domain.PackItem {
	out := make([]domain.PackItem, len(c.pack))
	copy(out, c.pack)
	return out
}
