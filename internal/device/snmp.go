package device

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/xtxerr/aimon/internal/errors"
	"github.com/xtxerr/aimon/internal/logging"
)

var snmpLog = logging.Component("device-snmp")

// sysUpTimeOID is used as the reachability probe.
const sysUpTimeOID = ".1.3.6.1.2.1.1.3.0"

// SNMPConfig holds SNMP client configuration.
type SNMPConfig struct {
	// Address is the device host.
	Address string

	// Port is the SNMP agent port (default 161).
	Port uint16

	// Community is the SNMPv2c community string.
	Community string

	// OIDBase is the prefix of the per-channel scaled value objects; the
	// channel instance (index+1) is appended per ioLogik MIB convention.
	OIDBase string

	// Scale converts the integer value reported by the agent to
	// engineering units (the agent reports scaled values in mV).
	Scale float64

	// Channels is the set of analog channel indices to read.
	Channels []int

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// SNMPClient reads analog inputs via the device's SNMP agent.
type SNMPClient struct {
	cfg  SNMPConfig
	oids []string
}

// NewSNMPClient creates an SNMP device client.
func NewSNMPClient(cfg SNMPConfig) *SNMPClient {
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Scale == 0 {
		cfg.Scale = 0.001
	}

	oids := make([]string, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		// Table instances are 1-based.
		oids[i] = fmt.Sprintf("%s.%d", cfg.OIDBase, ch+1)
	}

	return &SNMPClient{cfg: cfg, oids: oids}
}

// FetchStatus probes the agent with a sysUpTime GET.
func (c *SNMPClient) FetchStatus(ctx context.Context) error {
	conn, err := c.connect()
	if err != nil {
		return errors.Wrap(err, "status probe")
	}
	defer conn.Conn.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := conn.Get([]string{sysUpTimeOID}); err != nil {
		return errors.Wrapf(errors.ErrSNMPError, "status probe: %v", err)
	}
	return nil
}

// FetchChannels issues one GET for all configured channel OIDs. OIDs the
// agent does not know are skipped, yielding a partial reading.
func (c *SNMPClient) FetchChannels(ctx context.Context) (map[int]float64, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	defer conn.Conn.Close()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrTimeout, "fetch")
	}

	pdu, err := conn.Get(c.oids)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSNMPError, "get: %v", err)
	}

	values := make(map[int]float64)
	for i, variable := range pdu.Variables {
		if i >= len(c.cfg.Channels) {
			break
		}
		ch := c.cfg.Channels[i]

		switch variable.Type {
		case gosnmp.Integer:
			values[ch] = float64(variable.Value.(int)) * c.cfg.Scale
		case gosnmp.Gauge32, gosnmp.Uinteger32:
			values[ch] = float64(gosnmp.ToBigInt(variable.Value).Uint64()) * c.cfg.Scale
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
			snmpLog.Debug("channel OID not found", "channel", ch)
		default:
			snmpLog.Debug("unsupported variable type",
				"channel", ch, "type", fmt.Sprintf("%v", variable.Type))
		}
	}

	if len(values) == 0 && len(pdu.Variables) == 0 {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "no variables returned")
	}
	return values, nil
}

func (c *SNMPClient) connect() (*gosnmp.GoSNMP, error) {
	conn := &gosnmp.GoSNMP{
		Target:    c.cfg.Address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   c.cfg.Timeout,
		Retries:   0, // the poll loop owns retry policy
	}
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	return conn, nil
}
