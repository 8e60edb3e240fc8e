// Command tapstack wires a NetworkStack to a Linux TAP device, logging
// received ICMP echo requests and replying to them. It exists to exercise
// the stack against a real kernel-backed interface, the way the teacher's
// examples/tap and examples/stack programs exercise theirs.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/soypat/lnetstack/datalink"
	"github.com/soypat/lnetstack/icmpv4"
	"github.com/soypat/lnetstack/internal/linktap"
	"github.com/soypat/lnetstack/netstack"
	"github.com/soypat/lnetstack/routing"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln("tapstack:", err)
	}
}

func run() error {
	var (
		flagIface = "tap0"
		flagCIDR  = "192.168.10.1/24"
		flagMAC   = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	)
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	network, err := netip.ParsePrefix(flagCIDR)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", flagCIDR, err)
	}

	tap, err := linktap.New(flagIface, flagCIDR)
	if err != nil {
		return fmt.Errorf("opening tap device: %w", err)
	}
	defer tap.Close()

	ns := netstack.New(log)
	iface := datalink.Interface{Name: flagIface, MAC: flagMAC, MTU: 1500}
	si, err := ns.AddInterface(iface, datalink.Channel{Sender: tap, Receiver: tap})
	if err != nil {
		return fmt.Errorf("adding interface: %w", err)
	}
	if err := ns.AddIPv4(si.Iface.Name, network); err != nil {
		return fmt.Errorf("assigning %s: %w", network, err)
	}
	if err := routing.LoadFromNetlink(ns.Routes, flagIface, &si.Iface); err != nil {
		log.Warn("loading kernel routes", slog.String("err", err.Error()))
	}

	replyEcho := func(src [4]byte, msg []byte) {
		frm, err := icmpv4.NewFrame(msg)
		if err != nil {
			log.Error("icmp: parsing echo request", slog.String("err", err.Error()))
			return
		}
		echo := icmpv4.FrameEcho{Frame: frm}
		dst := netip.AddrFrom4(src)
		tx, err := ns.IcmpTx(dst)
		if err != nil {
			log.Error("icmp: resolving reply destination", slog.String("err", err.Error()))
			return
		}
		reply := icmpv4.EchoBuilder{
			Reply:      true,
			Identifier: echo.Identifier(),
			Sequence:   echo.SequenceNumber(),
			Data:       echo.Data(),
		}
		if err := tx.SendEcho(reply); err != nil {
			log.Error("icmp: sending echo reply", slog.String("err", err.Error()))
			return
		}
		log.Info("icmp: replied to echo request", slog.String("src", dst.String()))
	}
	// IcmpTx can block on an ARP reply that only this interface's receive
	// goroutine delivers, so each echo request is answered from its own
	// goroutine, on a copy of the message.
	err = ns.IcmpListen(network.Addr(), icmpv4.TypeEcho, func(src [4]byte, msg []byte) {
		go replyEcho(src, append([]byte(nil), msg...))
	})
	if err != nil {
		return fmt.Errorf("registering icmp listener: %w", err)
	}

	log.Info("tapstack running", slog.String("iface", flagIface), slog.String("cidr", flagCIDR))
	for {
		time.Sleep(time.Hour)
	}
}
