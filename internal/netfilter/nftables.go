package netfilter

import (
	"context"
	"fmt"

	"sigs.k8s.io/knftables"
)

const (
	nftTable = "mediagate"
	nftChain = "ban"
)

func (f *Firewall) nftTableObj() *knftables.Table {
	return &knftables.Table{
		Name:   nftTable,
		Family: knftables.IPv4Family,
	}
}

func (f *Firewall) nftSetup() error {
	table := f.nftTableObj()
	nft, err := knftables.New(table.Family, table.Name)
	if err != nil {
		return err
	}

	tx := nft.NewTransaction()
	tx.Add(table)

	banSet := &knftables.Set{
		Name:   BanSet,
		Table:  table.Name,
		Family: table.Family,
		Type:   "ipv4_addr",
		Flags: []knftables.SetFlag{
			knftables.TimeoutFlag,
		},
		Timeout: knftables.PtrTo(f.timeout),
	}
	tx.Add(banSet)

	chain := &knftables.Chain{
		Name:     nftChain,
		Table:    table.Name,
		Type:     knftables.PtrTo(knftables.FilterType),
		Hook:     knftables.PtrTo(knftables.InputHook),
		Priority: knftables.PtrTo(knftables.FilterPriority),
	}
	tx.Add(chain)

	rule := &knftables.Rule{
		Chain: chain.Name,
		Rule: knftables.Concat(
			fmt.Sprintf("tcp dport %d", f.port),
			fmt.Sprintf("ip saddr @%s", BanSet),
			"drop",
		),
	}
	tx.Add(rule)

	return nft.Run(context.TODO(), tx)
}

func (f *Firewall) nftBan(addr string) error {
	table := f.nftTableObj()
	nft, err := knftables.New(table.Family, table.Name)
	if err != nil {
		return err
	}

	tx := nft.NewTransaction()
	tx.Add(&knftables.Element{
		Table:  table.Name,
		Family: table.Family,
		Set:    BanSet,
		Key:    []string{addr},
	})
	return nft.Run(context.TODO(), tx)
}

func (f *Firewall) nftCleanup() error {
	table := f.nftTableObj()
	nft, err := knftables.New(table.Family, table.Name)
	if err != nil {
		return err
	}

	tx := nft.NewTransaction()
	tx.Delete(table)
	return nft.Run(context.TODO(), tx)
}
