package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderModels(w io.Writer, models []*energy_counters.Model) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Model", "Manufacturer", "Preferred", "Threshold", "Blocks", "Keys"})
	for _, m := range models {
		t.AppendRow(table.Row{m.Name, m.Manufacturer, m.Preferred, m.FailureThreshold, len(m.Blocks), len(m.Keys())})
	}
	t.Render()
}

func renderRecord(w io.Writer, record *energy_counters.OutputRecord, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s #%d @ %s", record.Model, record.CounterId, record.ISOTimestamp())
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, key := range record.Keys() {
		value, _ := record.Get(key)
		t.AppendRow(table.Row{key, strconv.FormatFloat(value, 'f', -1, 64)})
	}
	t.Render()
	return nil
}
