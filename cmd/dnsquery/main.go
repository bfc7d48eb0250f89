// Command dnsquery is a tiny standalone debug client: it sends one DNS
// query over UDP and prints the response, independent of the resolver
// daemon and its cache.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/domainwalk/recudns/internal/dns"
)

func main() {
	var (
		server  = flag.String("server", "8.8.8.8:53", "DNS server HOST:PORT")
		name    = flag.String("name", "example.com", "Query name")
		qtype   = flag.Int("qtype", int(dns.TypeA), "Query type (numeric, A=1, NS=2, CNAME=5, SOA=6, MX=15, AAAA=28)")
		timeout = flag.Duration("timeout", 2*time.Second, "Timeout")
		quiet   = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := queryUDP(*server, *name, dns.RecordType(*qtype), *timeout)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	p, err := dns.ParsePacket(resp)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable): %v\n", len(resp), err)
		return
	}

	fmt.Printf("id=%d rcode=%s answers=%d authorities=%d additionals=%d\n",
		p.Header.ID,
		p.Header.RCode,
		len(p.Answers),
		len(p.Authorities),
		len(p.Additionals),
	)

	printSection("ANSWER", p.Answers)
	printSection("AUTHORITY", p.Authorities)
	printSection("ADDITIONAL", p.Additionals)
}

func printSection(label string, records []dns.Record) {
	if len(records) == 0 {
		return
	}
	rows := make([]string, 0, len(records))
	for _, rr := range records {
		rows = append(rows, formatRR(rr))
	}
	sort.Strings(rows)
	fmt.Printf(";; %s\n", label)
	for _, s := range rows {
		fmt.Println(s)
	}
}

func queryUDP(server, name string, qtype dns.RecordType, timeout time.Duration) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reqBytes, err := buildQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	if _, err := c.Write(reqBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, 512)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func buildQuery(name string, qtype dns.RecordType) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name required")
	}
	p := dns.Packet{
		Header:    dns.Header{ID: uint16(time.Now().UnixNano()), RecursionDesired: true},
		Questions: []dns.Question{{Name: strings.TrimSuffix(name, "."), Type: qtype, Class: dns.ClassIN}},
	}
	return p.Marshal()
}

func formatRR(rr dns.Record) string {
	name := rr.Header().Name
	if name == "" {
		name = "."
	}
	ttl := rr.Header().TTL

	switch r := rr.(type) {
	case *dns.IPRecord:
		return fmt.Sprintf("%s %d IN %s %s", name, ttl, r.Type(), r.Addr.String())
	case *dns.NameRecord:
		return fmt.Sprintf("%s %d IN %s %s", name, ttl, r.T, r.Target)
	case *dns.MXRecord:
		return fmt.Sprintf("%s %d IN MX %d %s", name, ttl, r.Priority, r.Target)
	case *dns.OpaqueRecord:
		return fmt.Sprintf("%s %d IN %s (unparsed, %d bytes)", name, ttl, r.T, r.DataLen)
	default:
		return fmt.Sprintf("%s %d IN ? (unrecognized record)", name, ttl)
	}
}
