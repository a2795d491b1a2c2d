package cluster

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// envRef matches ${VAR} references in cluster file values.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// File is the on-disk multi-cluster configuration.
//
//	clusters:
//	  prod:
//	    bootstrap_servers: [host1:9092, host2:9092]
//	    security_protocol: SASL_SSL
//	    sasl_mechanism: SCRAM-SHA-256
//	    sasl_plain_username: user
//	    sasl_plain_password: ${PROD_KAFKA_PASSWORD}
//	    request_timeout: 20s
//	    ssl:
//	      ca_file: /etc/kafka/ca.pem
type File struct {
	Clusters map[string]FileCluster `yaml:"clusters"`
}

// FileCluster is one entry of File.Clusters.
type FileCluster struct {
	BootstrapServers  addressList   `yaml:"bootstrap_servers"`
	SecurityProtocol  string        `yaml:"security_protocol"`
	SASLMechanism     string        `yaml:"sasl_mechanism"`
	SASLPlainUsername string        `yaml:"sasl_plain_username"`
	SASLPlainPassword string        `yaml:"sasl_plain_password"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	SSL               FileSSL       `yaml:"ssl"`
}

// FileSSL holds TLS material paths.
type FileSSL struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"certfile"`
	KeyFile  string `yaml:"keyfile"`
}

// addressList accepts either a YAML sequence or a comma delimited string.
type addressList []string

func (a *addressList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*a = splitAddresses(s)
		return nil
	case yaml.SequenceNode:
		var l []string
		if err := n.Decode(&l); err != nil {
			return err
		}
		*a = l
		return nil
	}

	return errors.Errorf("line %d: bootstrap_servers must be a list or a string", n.Line)
}

// LoadConfigFile reads a cluster file and returns its validated Profiles,
// sorted by name.
func LoadConfigFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cluster config file")
	}

	return ParseConfig(data)
}

// ParseConfig parses cluster file content. ${VAR} references are replaced
// with the value of the environment variable VAR; referencing an unset
// variable is an error.
func ParseConfig(data []byte) ([]Profile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse cluster config file")
	}

	if len(f.Clusters) == 0 {
		return nil, errors.New("cluster config file defines no clusters")
	}

	var profiles []Profile

	for name, c := range f.Clusters {
		p, err := c.profile(name)
		if err != nil {
			return nil, err
		}

		if err := p.Validate(); err != nil {
			return nil, err
		}

		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})

	return profiles, nil
}

func (c FileCluster) profile(name string) (Profile, error) {
	var firstErr error
	expand := func(s string) string {
		out, err := expandEnv(s)
		if err != nil && firstErr == nil {
			firstErr = ErrInvalidProfile{Cluster: name, Message: err.Error()}
		}
		return out
	}

	p := Profile{
		Name:             name,
		SecurityProtocol: strings.ToUpper(expand(c.SecurityProtocol)),
		SASLMechanism:    strings.ToUpper(expand(c.SASLMechanism)),
		SASLUsername:     expand(c.SASLPlainUsername),
		SASLPassword:     expand(c.SASLPlainPassword),
		SSLCALocation:    expand(c.SSL.CAFile),
		SSLCertLocation:  expand(c.SSL.CertFile),
		SSLKeyLocation:   expand(c.SSL.KeyFile),
		RequestTimeout:   c.RequestTimeout,
	}

	for _, s := range c.BootstrapServers {
		p.BootstrapServers = append(p.BootstrapServers, splitAddresses(expand(s))...)
	}

	return p, firstErr
}

func expandEnv(s string) (string, error) {
	var missing string

	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})

	if missing != "" {
		return "", errors.Errorf("environment variable %s is not set", missing)
	}

	return out, nil
}

// splitAddresses splits a comma delimited broker list, dropping empty
// entries.
func splitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
