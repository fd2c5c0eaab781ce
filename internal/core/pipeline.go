package core

import (
	"errors"
	"fmt"
)

// PipelineOptions selects the optional stages of RunPipeline.
type PipelineOptions struct {
	RemoveDuplicates bool
	FillMissing      bool
	Columns          []string // nil keeps all columns
	StatsColumn      string   // empty skips statistics
	Visualize        bool
	Target           Format // empty skips conversion
}

// PipelineResult holds the output of every stage that ran.
type PipelineResult struct {
	Descriptor FileDescriptor
	Loaded     *Table
	Table      *Table // after cleaning and projection
	Messages   []string
	Stats      *Stats
	Chart      *ChartData
	Artifact   *Artifact
}

// RunPipeline loads one file and runs the selected stages in order:
// dedupe, fill, project, stats, visualize, convert. Cleaning messages and
// the no-numeric-data warning are collected; load, projection, statistics
// and conversion errors abort.
func RunPipeline(desc FileDescriptor, data []byte, opts PipelineOptions) (*PipelineResult, error) {
	loaded, err := Load(desc, data)
	if err != nil {
		return nil, NewFileError(desc.Name, StageLoad, err)
	}

	res := &PipelineResult{Descriptor: desc, Loaded: loaded, Table: loaded}

	if opts.RemoveDuplicates {
		cr := RemoveDuplicates(res.Table)
		res.Table = cr.Table
		res.Messages = append(res.Messages, cr.Message)
	}
	if opts.FillMissing {
		cr := FillMissingNumeric(res.Table)
		res.Table = cr.Table
		res.Messages = append(res.Messages, cr.Message)
	}
	if opts.Columns != nil {
		projected, err := Project(res.Table, opts.Columns)
		if err != nil {
			return nil, NewFileError(desc.Name, StageProject, err)
		}
		res.Table = projected
	}

	if opts.StatsColumn != "" {
		st, err := ColumnStats(res.Table, opts.StatsColumn)
		if err != nil {
			return nil, NewFileError(desc.Name, StageStats, err)
		}
		res.Stats = &st
	}

	if opts.Visualize {
		chartData, err := Visualize(res.Table)
		switch {
		case errors.Is(err, ErrNoNumericData):
			res.Messages = append(res.Messages, fmt.Sprintf("Warning: %v", err))
		case err != nil:
			return nil, NewFileError(desc.Name, StageVisualize, err)
		default:
			res.Chart = chartData
		}
	}

	if opts.Target != "" {
		art, err := Convert(res.Table, opts.Target, desc)
		if err != nil {
			return nil, NewFileError(desc.Name, StageConvert, err)
		}
		res.Artifact = art
	}

	return res, nil
}
