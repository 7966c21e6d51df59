// Copyright 2020 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package grammar

import (
	"fmt"
	"time"
)

// Timestamp is a broken-down UTC timestamp, deliberately not time.Time: the
// grammar only ever needs field-by-field bounds checking and lexicographic
// comparison, never calendar arithmetic or timezone handling.
type Timestamp struct {
	Year            uint16
	Month, Day      uint8
	Hour, Minute    uint8
	Second          uint8
}

// Compare returns a negative number if t is before other, zero if equal,
// and a positive number if t is after other.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Year != other.Year:
		return int(t.Year) - int(other.Year)
	case t.Month != other.Month:
		return int(t.Month) - int(other.Month)
	case t.Day != other.Day:
		return int(t.Day) - int(other.Day)
	case t.Hour != other.Hour:
		return int(t.Hour) - int(other.Hour)
	case t.Minute != other.Minute:
		return int(t.Minute) - int(other.Minute)
	default:
		return int(t.Second) - int(other.Second)
	}
}

// After reports whether t is strictly later than other.
func (t Timestamp) After(other Timestamp) bool {
	return t.Compare(other) > 0
}

// FromTime converts a time.Time, normalized to UTC, into a Timestamp for
// comparison against a document's expires field.
func FromTime(t time.Time) Timestamp {
	u := t.UTC()
	return Timestamp{
		Year: uint16(u.Year()), Month: uint8(u.Month()), Day: uint8(u.Day()),
		Hour: uint8(u.Hour()), Minute: uint8(u.Minute()), Second: uint8(u.Second()),
	}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// Time parses the literal format "YYYY-MM-DDTHH:MM:SSZ", including its
// surrounding quotes. The closing quote is matched together with the "Z" as
// a single two-byte literal ("Z\""), so there's no ambiguity about whether a
// neighbouring literal absorbs it — unlike a line-by-line port that matches
// "Z" and leaves the quote for whatever reads next.
func Time(r Reader) (Timestamp, error) {
	if err := Literal(r, `"`); err != nil {
		return Timestamp{}, err
	}
	year, err := readFixedDigits(r, 4)
	if err != nil {
		return Timestamp{}, err
	}
	if err := Literal(r, "-"); err != nil {
		return Timestamp{}, err
	}
	month, err := readFixedDigits(r, 2)
	if err != nil {
		return Timestamp{}, err
	}
	if month > 12 {
		return Timestamp{}, fmt.Errorf("%w: month %d out of range", ErrGrammar, month)
	}
	if err := Literal(r, "-"); err != nil {
		return Timestamp{}, err
	}
	day, err := readFixedDigits(r, 2)
	if err != nil {
		return Timestamp{}, err
	}
	if day > 31 {
		return Timestamp{}, fmt.Errorf("%w: day %d out of range", ErrGrammar, day)
	}
	if err := Literal(r, "T"); err != nil {
		return Timestamp{}, err
	}
	hour, err := readFixedDigits(r, 2)
	if err != nil {
		return Timestamp{}, err
	}
	if hour > 23 {
		return Timestamp{}, fmt.Errorf("%w: hour %d out of range", ErrGrammar, hour)
	}
	if err := Literal(r, ":"); err != nil {
		return Timestamp{}, err
	}
	minute, err := readFixedDigits(r, 2)
	if err != nil {
		return Timestamp{}, err
	}
	if minute > 59 {
		return Timestamp{}, fmt.Errorf("%w: minute %d out of range", ErrGrammar, minute)
	}
	if err := Literal(r, ":"); err != nil {
		return Timestamp{}, err
	}
	second, err := readFixedDigits(r, 2)
	if err != nil {
		return Timestamp{}, err
	}
	if second > 59 {
		return Timestamp{}, fmt.Errorf("%w: second %d out of range", ErrGrammar, second)
	}
	if err := Literal(r, `Z"`); err != nil {
		return Timestamp{}, err
	}
	return Timestamp{
		Year: uint16(year), Month: uint8(month), Day: uint8(day),
		Hour: uint8(hour), Minute: uint8(minute), Second: uint8(second),
	}, nil
}
