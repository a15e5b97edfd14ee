package netfilter

import (
	"strconv"

	"github.com/coreos/go-iptables/iptables"
	"github.com/gonetx/ipset"
)

const (
	iptTable     = "filter"
	iptJumpPoint = "INPUT"
)

func (f *Firewall) banRuleSpec() []string {
	return []string{
		"-p", "tcp",
		"--dport", strconv.Itoa(f.port),
		"-m", "set",
		"--match-set", BanSet, "src",
		"-j", "DROP",
	}
}

func (f *Firewall) iptSetup() error {
	if err := ipset.Check(); err != nil {
		return err
	}
	_, err := ipset.New(
		BanSet,
		ipset.HashIp,
		ipset.Family(ipset.Inet),
		ipset.Timeout(f.timeout),
		ipset.Exist(true),
	)
	if err != nil {
		return err
	}

	ipt, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return err
	}
	exists, err := ipt.Exists(iptTable, iptJumpPoint, f.banRuleSpec()...)
	if err != nil {
		return err
	}
	if !exists {
		if err := ipt.Insert(iptTable, iptJumpPoint, 1, f.banRuleSpec()...); err != nil {
			return err
		}
	}
	return nil
}

func (f *Firewall) iptBan(addr string) error {
	set, err := ipset.New(
		BanSet,
		ipset.HashIp,
		ipset.Family(ipset.Inet),
		ipset.Timeout(f.timeout),
		ipset.Exist(true),
	)
	if err != nil {
		return err
	}
	return set.Add(addr)
}

func (f *Firewall) iptCleanup() error {
	ipt, err := iptables.NewWithProtocol(iptables.ProtocolIPv4)
	if err != nil {
		return err
	}
	if err := ipt.DeleteIfExists(iptTable, iptJumpPoint, f.banRuleSpec()...); err != nil {
		return err
	}
	return ipset.Destroy(BanSet)
}
