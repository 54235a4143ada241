package store

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/leeforge/addonstate/install"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeRecord(rec install.Record) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeRecord(guid string, data []byte) (install.Record, error) {
	rec := install.NewRecord(guid)
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return install.Record{}, err
	}
	if rec.GUID == "" {
		rec.GUID = guid
	}
	return rec, nil
}
