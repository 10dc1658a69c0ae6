package dto

// TimeLayout - формат дат в ответах API.
const TimeLayout = "2006-01-02 15:04:05"
