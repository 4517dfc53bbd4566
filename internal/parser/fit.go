package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/basetype"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
	"github.com/rs/zerolog/log"

	"tracklog/internal/sport"
)

const semicirclesToDegrees = 180.0 / 2147483648.0

func parseFIT(filename string, data []byte) (*Activity, error) {
	fitFile, err := decodeFIT(data)
	if errors.Is(err, decoder.ErrCRCChecksumMismatch) {
		// Some units ship firmware that writes a zeroed file CRC. Decode
		// again without integrity verification rather than rejecting the
		// whole file.
		fitFile, err = decodeFIT(data, decoder.WithIgnoreChecksum())
		if err == nil {
			log.Warn().Str("file", filename).Msg("fit crc mismatch, decoded without checksum verification")
		}
	}
	if err != nil {
		return nil, parseErr(filename, FormatFIT, err)
	}

	act := &Activity{Filename: filename, Format: FormatFIT, Sport: sport.None}
	for i := range fitFile.Messages {
		mesg := &fitFile.Messages[i]
		switch mesg.Num {
		case typedef.MesgNumRecord:
			p, ok := fitPoint(mesgdef.NewRecord(mesg))
			if ok && keepPoint(p) {
				act.Points = append(act.Points, p)
			}
		case typedef.MesgNumLap:
			lap, lapSport := fitLap(mesgdef.NewLap(mesg))
			if lapSport != sport.None {
				act.Sport = lapSport
			}
			act.Laps = append(act.Laps, lap)
		case typedef.MesgNumSession:
			sess := mesgdef.NewSession(mesg)
			if sp, ok := sportFromFIT(sess.Sport); ok {
				act.Sport = sp
			}
		}
	}

	fixLapNumbers(act.Laps)
	computeDurations(act.Points)
	return act, nil
}

func decodeFIT(data []byte, opts ...decoder.Option) (*proto.FIT, error) {
	dec := decoder.New(bytes.NewReader(data), opts...)
	fitFile, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding fit: %w", err)
	}
	return fitFile, nil
}

func fitPoint(rec *mesgdef.Record) (Point, bool) {
	if rec.Timestamp.IsZero() {
		return Point{}, false
	}
	p := Point{Time: rec.Timestamp.UTC()}

	if rec.PositionLat != basetype.Sint32Invalid {
		p.Latitude = float64ptr(float64(rec.PositionLat) * semicirclesToDegrees)
	}
	if rec.PositionLong != basetype.Sint32Invalid {
		p.Longitude = float64ptr(float64(rec.PositionLong) * semicirclesToDegrees)
	}
	if rec.Distance != basetype.Uint32Invalid {
		p.Distance = float64ptr(float64(rec.Distance) / 100.0)
	}
	switch {
	case rec.EnhancedAltitude != basetype.Uint32Invalid:
		p.Altitude = float64ptr(float64(rec.EnhancedAltitude)/5.0 - 500.0)
	case rec.Altitude != basetype.Uint16Invalid:
		p.Altitude = float64ptr(float64(rec.Altitude)/5.0 - 500.0)
	}
	if rec.HeartRate != basetype.Uint8Invalid {
		p.HeartRate = float64ptr(float64(rec.HeartRate))
	}
	switch {
	case rec.EnhancedSpeed != basetype.Uint32Invalid:
		p.SpeedMPS = float64(rec.EnhancedSpeed) / 1000.0
	case rec.Speed != basetype.Uint16Invalid:
		p.SpeedMPS = float64(rec.Speed) / 1000.0
	}
	return p, true
}

func fitLap(l *mesgdef.Lap) (Lap, sport.Sport) {
	lap := Lap{Number: -1}
	if !l.StartTime.IsZero() {
		lap.Start = l.StartTime.UTC()
	}

	switch {
	case l.TotalTimerTime != basetype.Uint32Invalid:
		lap.Duration = float64(l.TotalTimerTime) / 1000.0
	case l.TotalElapsedTime != basetype.Uint32Invalid:
		lap.Duration = float64(l.TotalElapsedTime) / 1000.0
	}
	if l.TotalDistance != basetype.Uint32Invalid {
		lap.Distance = float64(l.TotalDistance) / 100.0
	}
	if l.TotalCalories != basetype.Uint16Invalid {
		lap.Calories = int(l.TotalCalories)
	}
	if l.AvgHeartRate != basetype.Uint8Invalid {
		lap.AvgHR = float64ptr(float64(l.AvgHeartRate))
	}
	if l.MaxHeartRate != basetype.Uint8Invalid {
		lap.MaxHR = intptr(int(l.MaxHeartRate))
	}
	if l.MaxSpeed != basetype.Uint16Invalid {
		lap.MaxSpeed = float64ptr(float64(l.MaxSpeed) / 1000.0)
	}

	lapSport, ok := sportFromFIT(l.Sport)
	if !ok {
		return lap, sport.None
	}
	s := lapSport.String()
	lap.Sport = &s
	return lap, lapSport
}

func sportFromFIT(s typedef.Sport) (sport.Sport, bool) {
	switch s {
	case typedef.SportRunning:
		return sport.Running, true
	case typedef.SportCycling:
		return sport.Biking, true
	case typedef.SportWalking:
		return sport.Walking, true
	case typedef.SportHiking:
		return sport.Hiking, true
	case typedef.SportSwimming:
		return sport.Swimming, true
	case typedef.SportCrossCountrySkiing:
		return sport.Skiing, true
	case typedef.SportSnowshoeing:
		return sport.Snowshoeing, true
	case typedef.SportTraining, typedef.SportFitnessEquipment:
		return sport.Lifting, true
	case typedef.SportGeneric:
		return sport.Other, true
	default:
		return sport.None, false
	}
}
