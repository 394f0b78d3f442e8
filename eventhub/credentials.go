package eventhub

import (
	"errors"
	"strings"
)

// Credentials is an eventhub connection string representation.
type Credentials struct {
	Endpoint            string
	SharedAccessKeyName string
	SharedAccessKey     string
	EntityPath          string
}

// ParseConnectionString parses the given connection string into Credentials structure.
//
// EntityPath is optional since it's not included in namespace level
// connection strings, the hub name has to be provided separately then.
func ParseConnectionString(cs string) (*Credentials, error) {
	var c Credentials
	for _, s := range strings.Split(strings.TrimSpace(cs), ";") {
		if s == "" {
			continue
		}
		kv := strings.SplitN(s, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("malformed connection string")
		}

		switch kv[0] {
		case "Endpoint":
			if !strings.HasPrefix(kv[1], "sb://") {
				return nil, errors.New("only sb:// schema supported")
			}
			c.Endpoint = strings.TrimRight(kv[1][5:], "/")
		case "SharedAccessKeyName":
			c.SharedAccessKeyName = kv[1]
		case "SharedAccessKey":
			c.SharedAccessKey = kv[1]
		case "EntityPath":
			c.EntityPath = kv[1]
		}
	}

	switch {
	case c.Endpoint == "":
		return nil, errors.New("Endpoint is missing")
	case c.SharedAccessKeyName == "":
		return nil, errors.New("SharedAccessKeyName is missing")
	case c.SharedAccessKey == "":
		return nil, errors.New("SharedAccessKey is missing")
	}
	return &c, nil
}
