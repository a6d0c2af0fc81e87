package main

import (
	"context"
	"flag"
	"fmt"
	"jiorelay/config"
	"jiorelay/entity"
	"jiorelay/internal"
	"jiorelay/services"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {

	logger := internal.NewLogger("internal", false, nil)

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	logger.Info("using config file: " + *configPath)
	conf, err := config.GetConfig(*configPath)
	if err != nil {
		logger.Error("boot", err)
		return
	}

	credential, err := conf.Credential()
	if err != nil {
		logger.Error("merchant credential", err)
		return
	}
	baseUrl, err := conf.BaseUrl()
	if err != nil {
		logger.Error("gateway base url", err)
		return
	}
	returnUrl := conf.Gateway.ReturnUrl
	if returnUrl == "" {
		returnUrl, err = internal.EndpointUrl(baseUrl, entity.Sale)
		if err != nil {
			logger.Error("sale return url", err)
			return
		}
	}

	var database services.Database
	if conf.Mongo.Enabled {
		mongo, err := internal.NewMongoClient(conf)
		if err != nil {
			logger.Error("mongo client", err)
			return
		}
		database = mongo
		logger.Info("mongo client initialized")
	}

	gateway := internal.NewGatewayClient(baseUrl, conf.Gateway.Timeout)
	gateway.SetLogger(internal.NewLogger("gateway", conf.IsDebug, database))

	relay := internal.NewRelay(internal.NewEnvelopeBuilder(credential, returnUrl), gateway)
	relay.SetLogger(internal.NewLogger("relay", conf.IsDebug, database))

	server := internal.NewServer(conf)
	server.SetLogger(internal.NewLogger("server", conf.IsDebug, database))
	server.SetRelay(relay)

	logger.Info(fmt.Sprintf("%s, %s gateway at %s", credential, conf.Gateway.Environment, baseUrl))

	go func() {
		if err := internal.ListenMetrics(conf, logger); err != nil {
			logger.Error("metrics server", err)
		}
	}()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown", err)
		}
	}()

	err = server.Start()
	if err != nil {
		logger.Error("server start", err)
		return
	}
	logger.Info("server stopped")
}
