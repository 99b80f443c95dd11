package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fragudp/fragudp-go/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates TXT records for server discovery.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersion: version.Current,
		TXTKeyMTU:     strconv.Itoa(info.MTU),
		TXTKeyRole:    RoleServer,
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeServerTXT parses TXT records from server discovery.
func DecodeServerTXT(txt TXTRecordMap) (*ServerService, error) {
	svc := &ServerService{}

	v, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if _, err := version.Check(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}
	svc.Version = v

	mtuStr, ok := txt[TXTKeyMTU]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyMTU)
	}
	mtu, err := strconv.Atoi(mtuStr)
	if err != nil || mtu <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMTU, mtuStr)
	}
	svc.MTU = mtu

	if role, ok := txt[TXTKeyRole]; ok && role != RoleServer {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidTXTRecord, role)
	}

	svc.Name = txt[TXTKeyName]
	return svc, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings
// sorted by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
// A key without "=" is stored with an empty value.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, _ := strings.Cut(s, "=")
		if key != "" {
			txt[key] = value
		}
	}
	return txt
}

// ValidateInstanceName checks that name fits in a DNS label.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: instance name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
