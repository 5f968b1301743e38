package loggingx_test

import (
	. "github.com/dogmatiq/eventtable/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("func Zap()", func() {
	It("writes log messages at the info level", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := Zap(zap.New(core))

		logger.Log("<message %d>", 1)
		logger.LogString("<message>")

		entries := logs.AllUntimed()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Message).To(Equal("<message 1>"))
		Expect(entries[0].Level).To(Equal(zapcore.InfoLevel))
		Expect(entries[1].Message).To(Equal("<message>"))
	})

	It("writes debug messages at the debug level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := Zap(zap.New(core))

		Expect(logger.IsDebug()).To(BeTrue())

		logger.Debug("<debug %d>", 1)
		logger.DebugString("<debug>")

		entries := logs.AllUntimed()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Message).To(Equal("<debug 1>"))
		Expect(entries[0].Level).To(Equal(zapcore.DebugLevel))
	})

	It("discards debug messages if the debug level is disabled", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := Zap(zap.New(core))

		Expect(logger.IsDebug()).To(BeFalse())

		logger.Debug("<debug>")
		logger.DebugString("<debug>")

		Expect(logs.Len()).To(Equal(0))
	})
})
